// Package storage puts settlement archives into object storage.
package storage

import (
	"context"
	"io"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	// GetPublicURL returns "" when the object has no public location.
	GetPublicURL(key string) string
}

// noopUploader discards uploads. It backs deployments without object storage.
type noopUploader struct{}

func NewNoopUploader() FileUploader { return noopUploader{} }

func (noopUploader) Upload(_ context.Context, key string, _ string, reader io.Reader) (*UploadResult, error) {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return nil, err
	}
	return &UploadResult{Key: key}, nil
}

func (noopUploader) Delete(context.Context, string) error { return nil }

func (noopUploader) GetPublicURL(string) string { return "" }
