package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/fastygo/teamspace/domain"
)

// Blobs is an in-memory object store.
type Blobs struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

func NewBlobs() *Blobs {
	return &Blobs{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (b *Blobs) Upload(ctx context.Context, path string, body io.Reader, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.objects[path] = data
	b.types[path] = contentType
	b.mu.Unlock()
	return nil
}

func (b *Blobs) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	data, ok := b.objects[path]
	b.mu.RUnlock()
	if !ok {
		return nil, domain.NewError(domain.ErrCodeNotFound, "Object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *Blobs) Remove(ctx context.Context, paths ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	for _, p := range paths {
		delete(b.objects, p)
		delete(b.types, p)
	}
	b.mu.Unlock()
	return nil
}

// Has reports whether path is stored.
func (b *Blobs) Has(path string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.objects[path]
	return ok
}
