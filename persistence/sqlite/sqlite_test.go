package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "recgo.db")

	p, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, p.Write(ctx, "tags", []byte(`[]`)))
	require.NoError(t, p.Write(ctx, "tags", []byte(`[{"id":"1"}]`)))
	require.NoError(t, p.Write(ctx, "schemas", []byte(`{}`)))
	require.NoError(t, p.Write(ctx, "empty", nil))
	require.NoError(t, p.Close())

	// Reopen to verify durability.
	p, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	got, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":"1"}]`), got["tags"])
	assert.Equal(t, []byte(`{}`), got["schemas"])
	assert.Empty(t, got["empty"])
	assert.Len(t, got, 3)
}

func TestPersistenceCanceled(t *testing.T) {
	p, err := Open(filepath.Join(t.TempDir(), "recgo.db"))
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, p.Write(ctx, "tags", []byte(`[]`)))
}
