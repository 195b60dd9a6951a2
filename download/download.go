// Package download resolves stored files into data URIs for include
// resolution of file fields.
package download

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/recgo/blobstore"
	"github.com/hupe1980/recgo/internal/cache"
)

// DefaultCacheSize is the default byte capacity of the Blob cache.
const DefaultCacheSize = 32 << 20

// Downloader fetches the raw bytes of a stored file.
//
// An empty result means that no file exists at path.
type Downloader interface {
	DownloadRawFile(ctx context.Context, mimeType, path string) (string, error)
}

// Func adapts a function to the Downloader interface.
type Func func(ctx context.Context, mimeType, path string) (string, error)

// DownloadRawFile implements Downloader.
func (f Func) DownloadRawFile(ctx context.Context, mimeType, path string) (string, error) {
	return f(ctx, mimeType, path)
}

// DataURI encodes data as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	var sb strings.Builder
	sb.Grow(len("data:;base64,") + len(mimeType) + base64.StdEncoding.EncodedLen(len(data)))
	sb.WriteString("data:")
	sb.WriteString(mimeType)
	sb.WriteString(";base64,")
	sb.WriteString(base64.StdEncoding.EncodeToString(data))
	return sb.String()
}

// Blob serves files from a blob store through an LRU cache.
type Blob struct {
	store  blobstore.BlobStore
	prefix string
	cache  *cache.LRU
}

// Option configures a Blob downloader.
type Option func(*Blob)

// WithPrefix prepends prefix to every file path.
func WithPrefix(prefix string) Option {
	return func(b *Blob) { b.prefix = prefix }
}

// WithCacheSize sets the cache capacity in bytes. Zero disables caching.
func WithCacheSize(bytes int64) Option {
	return func(b *Blob) {
		if bytes <= 0 {
			b.cache = nil
			return
		}
		b.cache = cache.NewLRU(bytes)
	}
}

// NewBlob creates a Blob downloader.
func NewBlob(store blobstore.BlobStore, optFns ...Option) *Blob {
	b := &Blob{
		store: store,
		cache: cache.NewLRU(DefaultCacheSize),
	}
	for _, fn := range optFns {
		fn(b)
	}
	return b
}

// DownloadRawFile implements Downloader. Missing files yield "".
func (b *Blob) DownloadRawFile(ctx context.Context, mimeType, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	name := b.prefix + strings.TrimPrefix(path, "/")

	if b.cache != nil {
		if data, ok := b.cache.Get(name); ok {
			return DataURI(mimeType, data), nil
		}
	}

	data, err := blobstore.ReadAll(ctx, b.store, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("download: read %q: %w", name, err)
	}

	if b.cache != nil {
		b.cache.Set(name, data)
	}
	return DataURI(mimeType, data), nil
}

// Invalidate drops the cached content of path.
func (b *Blob) Invalidate(path string) {
	if b.cache == nil {
		return
	}
	name := b.prefix + strings.TrimPrefix(path, "/")
	b.cache.Invalidate(func(key string) bool { return key == name })
}

// Stats returns the cache hits and misses.
func (b *Blob) Stats() (hits, misses int64) {
	if b.cache == nil {
		return 0, 0
	}
	return b.cache.Stats()
}
