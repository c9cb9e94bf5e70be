package storage

import (
	"context"
	"io"
)

// ObjectStorage stores uploaded photo files and exposes them by public URL.
type ObjectStorage interface {
	// Upload writes an object under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the public URL for key.
	GetURL(key string) string

	// Delete removes the object under key.
	Delete(ctx context.Context, key string) error
}
