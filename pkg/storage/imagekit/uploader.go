// Package imagekit uploads files through the ImageKit upload API.
package imagekit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"aura-chat-be/pkg/storage"

	"github.com/go-resty/resty/v2"
)

type Config struct {
	UploadURL  string
	PrivateKey string
	Folder     string
	Timeout    time.Duration
}

type Uploader struct {
	client *resty.Client
	cfg    Config
}

var _ storage.Uploader = (*Uploader)(nil)

type uploadResponse struct {
	FileID string `json:"fileId"`
	Name   string `json:"name"`
	URL    string `json:"url"`
}

func NewUploader(cfg Config) *Uploader {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.PrivateKey, "")
	return &Uploader{client: client, cfg: cfg}
}

func (u *Uploader) Upload(ctx context.Context, data []byte, fileName, mimeType string) (string, error) {
	if u.cfg.PrivateKey == "" {
		return "", errors.New("imagekit: private key not configured")
	}

	var out uploadResponse
	resp, err := u.client.R().
		SetContext(ctx).
		SetFileReader("file", fileName, bytes.NewReader(data)).
		SetFormData(map[string]string{
			"fileName":          fileName,
			"folder":            u.cfg.Folder,
			"useUniqueFileName": "true",
		}).
		SetResult(&out).
		Post(u.cfg.UploadURL)
	if err != nil {
		return "", fmt.Errorf("imagekit upload: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("imagekit upload: status %d", resp.StatusCode())
	}
	if out.URL == "" {
		return "", errors.New("imagekit upload: response has no url")
	}
	return out.URL, nil
}
