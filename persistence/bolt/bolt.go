// Package bolt provides a bbolt backed persistence for recgo.
package bolt

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hupe1980/recgo/persistence"
)

// bucketPayloads maps payload key -> encoded payload.
const bucketPayloads = "payloads"

// Persistence implements persistence.Persistence on a bbolt database.
type Persistence struct {
	db *bbolt.DB
}

var _ persistence.Persistence = (*Persistence)(nil)

// Open opens (or creates) the database file at path. It fails after
// timeout when another process holds the file.
func Open(path string, timeout time.Duration) (*Persistence, error) {
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketPayloads))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Persistence{db: db}, nil
}

// Load implements persistence.Persistence.
func (p *Persistence) Load(ctx context.Context) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string][]byte)
	err := p.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketPayloads)).ForEach(func(k, v []byte) error {
			// Values are only valid for the life of the transaction.
			data := make([]byte, len(v))
			copy(data, v)
			out[string(k)] = data
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Write implements persistence.Persistence.
func (p *Persistence) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketPayloads)).Put([]byte(key), data)
	})
}

// Close closes the database.
func (p *Persistence) Close() error {
	return p.db.Close()
}
