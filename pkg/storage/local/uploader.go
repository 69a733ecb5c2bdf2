// Package local writes uploads to a directory served by the HTTP server.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"aura-chat-be/pkg/storage"
)

type Uploader struct {
	dir     string
	baseURL string
}

var _ storage.Uploader = (*Uploader)(nil)

// NewUploader stores files in dir and returns URLs under baseURL,
// e.g. "http://localhost:3000/uploads".
func NewUploader(dir, baseURL string) (*Uploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Uploader{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (u *Uploader) Upload(ctx context.Context, data []byte, fileName, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Base(fileName)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", fileName)
	}
	if err := os.WriteFile(filepath.Join(u.dir, name), data, 0o644); err != nil {
		return "", err
	}
	return u.baseURL + "/" + name, nil
}
