package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

// Config selects the bucket that holds uploaded documents.
type Config struct {
	Bucket          string
	CredentialsFile string
}

// BlobStore keeps document files in a Cloud Storage bucket.
type BlobStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	logger *zap.Logger
}

var _ repository.BlobStore = (*BlobStore)(nil)

func New(ctx context.Context, cfg Config, logger *zap.Logger) (*BlobStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Bucket == "" {
		return nil, errors.New("gcs: bucket is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}
	return &BlobStore{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		logger: logger,
	}, nil
}

func (s *BlobStore) Upload(ctx context.Context, path string, body io.Reader, contentType string) error {
	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

func (s *BlobStore) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, domain.WrapError(domain.ErrCodeNotFound, "Object not found", err)
		}
		return nil, err
	}
	return r, nil
}

// Remove deletes every path. Paths already gone count as removed.
func (s *BlobStore) Remove(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		err := s.bucket.Object(p).Delete(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) {
			s.logger.Debug("object already removed", zap.String("path", p))
			continue
		}
		if err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

func (s *BlobStore) Close() error {
	return s.client.Close()
}
