package persistence

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
)

// Reserved payload keys. Every other key holds the collection of the model
// class of the same name.
const (
	SchemasKey   = "schemas"
	IndexesKey   = "indexes"
	SequencesKey = "sequences"
)

// ReservedKeys returns the keys that cannot name a model class.
func ReservedKeys() []string {
	return []string{SchemasKey, IndexesKey, SequencesKey}
}

// ErrClosed is returned by writers after Close.
var ErrClosed = errors.New("persistence: closed")

// Persistence stores encoded payloads by key.
//
// Load returns every stored payload and is called once at bootstrap. Write
// replaces the payload of a single key.
type Persistence interface {
	Load(ctx context.Context) (map[string][]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}

// Memory is an in-memory Persistence for tests and ephemeral stores.
// Thread-safe for concurrent reads and writes.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	writes int
}

// NewMemory creates a Memory holding a copy of the given payloads.
func NewMemory(initial map[string][]byte) *Memory {
	m := &Memory{data: make(map[string][]byte, len(initial))}
	for k, v := range initial {
		m.data[k] = clone(v)
	}
	return m
}

// Load implements Persistence.
func (m *Memory) Load(ctx context.Context) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		out[k] = clone(v)
	}
	return out, nil
}

// Write implements Persistence.
func (m *Memory) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = clone(data)
	m.writes++
	return nil
}

// Get returns the stored payload of key.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	return clone(v), ok
}

// Keys returns the stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.data))
}

// Writes returns the number of Write calls.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
