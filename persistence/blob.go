package persistence

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/recgo/blobstore"
)

// Blob persists payloads as blobs named <prefix><key><suffix>.
type Blob struct {
	store       blobstore.BlobStore
	prefix      string
	suffix      string
	concurrency int
}

// BlobOption configures a Blob persistence.
type BlobOption func(*Blob)

// WithSuffix appends suffix to blob names (e.g. ".json").
func WithSuffix(suffix string) BlobOption {
	return func(b *Blob) { b.suffix = suffix }
}

// WithLoadConcurrency bounds the number of parallel reads in Load.
func WithLoadConcurrency(n int) BlobOption {
	return func(b *Blob) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBlob creates a Blob persistence over store.
func NewBlob(store blobstore.BlobStore, prefix string, optFns ...BlobOption) *Blob {
	b := &Blob{
		store:       store,
		prefix:      prefix,
		concurrency: 8,
	}
	for _, fn := range optFns {
		fn(b)
	}
	return b
}

func (b *Blob) name(key string) string {
	return b.prefix + key + b.suffix
}

// Load reads all payloads below the prefix in parallel.
func (b *Blob) Load(ctx context.Context) (map[string][]byte, error) {
	names, err := b.store.List(ctx, b.prefix)
	if err != nil {
		return nil, fmt.Errorf("persistence: list %q: %w", b.prefix, err)
	}

	var (
		mu  sync.Mutex
		out = make(map[string][]byte, len(names))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for _, name := range names {
		key, ok := b.key(name)
		if !ok {
			continue
		}
		g.Go(func() error {
			data, err := blobstore.ReadAll(gctx, b.store, name)
			if err != nil {
				return fmt.Errorf("persistence: read %q: %w", name, err)
			}
			mu.Lock()
			out[key] = data
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// key maps a blob name back to its payload key. Names in nested
// directories or without the suffix are skipped.
func (b *Blob) key(name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, b.prefix)
	if !ok {
		return "", false
	}
	rest, ok = strings.CutSuffix(rest, b.suffix)
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// Write stores the payload of key.
func (b *Blob) Write(ctx context.Context, key string, data []byte) error {
	return b.store.Put(ctx, b.name(key), data)
}
