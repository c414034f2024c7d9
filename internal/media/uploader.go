// Package media turns an image file on disk into a platform media handle.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pollbot/pkg/logx"
)

// ErrUnsupportedFormat marks a file extension outside the fixed table
// below. It is raised before any file I/O happens.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// The platform accepts exactly these image types for tweet attachments,
// so the table is closed on purpose rather than consulting the host's
// MIME database.
var mimeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// UploadClient is the slice of the API client the uploader needs.
type UploadClient interface {
	UploadMedia(ctx context.Context, data []byte, contentType string) (string, error)
}

type Uploader struct {
	client UploadClient
	log    logx.Logger
}

func NewUploader(client UploadClient, log logx.Logger) *Uploader {
	return &Uploader{client: client, log: log}
}

// Upload resolves the MIME type from the extension, reads the whole file
// and pushes the bytes upstream. Size limits are enforced by the remote
// service, not here.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	contentType, ok := mimeByExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q (supported: png, jpg, jpeg, gif, webp)", ErrUnsupportedFormat, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", path, err)
	}

	u.log.Info("uploading media",
		logx.String("path", path),
		logx.String("content_type", contentType),
		logx.Int("bytes", len(data)))

	id, err := u.client.UploadMedia(ctx, data, contentType)
	if err != nil {
		return "", err
	}
	u.log.Info("media uploaded", logx.String("media_id", id))
	return id, nil
}
