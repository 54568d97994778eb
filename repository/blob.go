package repository

import (
	"context"
	"io"
)

// BlobStore is the remote file storage holding uploaded documents.
type BlobStore interface {
	Upload(ctx context.Context, path string, body io.Reader, contentType string) error
	Download(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, paths ...string) error
}
