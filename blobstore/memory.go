package blobstore

import (
	"bytes"
	"context"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps blobs in a map. Stored and returned data are copies.
// Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Open implements BlobStore.
func (m *MemoryStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return NewBytesBlob(bytes.Clone(data)), nil
}

// Put implements BlobStore.
func (m *MemoryStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.blobs[name] = buf
	m.mu.Unlock()
	return nil
}

// Delete implements BlobStore.
func (m *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.blobs, name)
	m.mu.Unlock()
	return nil
}

// List implements BlobStore.
func (m *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(func(yield func(string) bool) {
		for name := range maps.Keys(m.blobs) {
			if strings.HasPrefix(name, prefix) && !yield(name) {
				return
			}
		}
	}), nil
}

// NewBytesBlob returns a Blob reading from data. data must not be modified
// afterwards.
func NewBytesBlob(data []byte) Blob {
	return &bytesBlob{r: bytes.NewReader(data)}
}

type bytesBlob struct {
	r *bytes.Reader
}

func (b *bytesBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	n, err := b.r.ReadAt(p, off)
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (b *bytesBlob) Close() error { return nil }

func (b *bytesBlob) Size() int64 { return b.r.Size() }
