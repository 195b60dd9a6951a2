package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) BlobStore{
		"memory": func(t *testing.T) BlobStore { return NewMemoryStore() },
		"local": func(t *testing.T) BlobStore {
			s, err := OpenLocalStore(t.TempDir())
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			_, err := s.Open(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put(ctx, "data/contacts", []byte(`[{"id":"1"}]`)))
			require.NoError(t, s.Put(ctx, "data/tags", []byte(`[]`)))
			require.NoError(t, s.Put(ctx, "files/logo.png", []byte{0x89, 'P', 'N', 'G'}))

			got, err := ReadAll(ctx, s, "data/contacts")
			require.NoError(t, err)
			assert.Equal(t, `[{"id":"1"}]`, string(got))

			// Overwrite replaces the content.
			require.NoError(t, s.Put(ctx, "data/tags", []byte(`[{"id":"2"}]`)))
			got, err = ReadAll(ctx, s, "data/tags")
			require.NoError(t, err)
			assert.Equal(t, `[{"id":"2"}]`, string(got))

			blob, err := s.Open(ctx, "files/logo.png")
			require.NoError(t, err)
			assert.Equal(t, int64(4), blob.Size())
			buf := make([]byte, 8)
			n, err := blob.ReadAt(ctx, buf, 1)
			assert.ErrorIs(t, err, io.EOF)
			assert.Equal(t, "PNG", string(buf[:n]))
			require.NoError(t, blob.Close())

			names, err := s.List(ctx, "data/")
			require.NoError(t, err)
			assert.Equal(t, []string{"data/contacts", "data/tags"}, names)

			all, err := s.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)

			require.NoError(t, s.Delete(ctx, "data/tags"))
			require.NoError(t, s.Delete(ctx, "data/tags"))
			_, err = s.Open(ctx, "data/tags")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestReadAllEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "empty", nil))

	got, err := ReadAll(ctx, s, "empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLocalStoreInvalidNames(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(t.TempDir())

	for _, name := range []string{"", ".", "..", "../escape", "/abs"} {
		assert.Error(t, s.Put(ctx, name, []byte("x")), name)
	}
}

func TestLocalStoreLock(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory locking is unix only")
	}
	dir := t.TempDir()

	s, err := OpenLocalStore(dir)
	require.NoError(t, err)

	_, err = OpenLocalStore(dir)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, s.Close())

	s2, err := OpenLocalStore(dir)
	require.NoError(t, err)
	require.NoError(t, s2.Close())

	_, err = os.Stat(filepath.Join(dir, LockFile))
	assert.NoError(t, err)
}

func TestBytesBlob(t *testing.T) {
	ctx := context.Background()
	b := NewBytesBlob([]byte("hello"))
	assert.Equal(t, int64(5), b.Size())

	buf := make([]byte, 3)
	n, err := b.ReadAt(ctx, buf, 1)
	require.NoError(t, err)
	assert.Equal(t, "ell", string(buf[:n]))

	n, err = b.ReadAt(ctx, buf, 3)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "lo", string(buf[:n]))
	require.NoError(t, b.Close())
}
