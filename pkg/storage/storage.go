// Package storage hosts processed images and hands back durable URLs.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Uploader interface {
	Upload(ctx context.Context, data []byte, fileName, mimeType string) (string, error)
}

// FileName builds a unique object name with the given extension.
func FileName(prefix, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), ext)
}
