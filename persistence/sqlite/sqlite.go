// Package sqlite provides a SQLite backed persistence for recgo.
//
// Payloads live in a single key/value table:
//
//	CREATE TABLE payloads (key TEXT PRIMARY KEY, data BLOB NOT NULL, updated_at TEXT NOT NULL)
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/hupe1980/recgo/persistence"
)

// Persistence implements persistence.Persistence on a SQLite database.
type Persistence struct {
	db  *sql.DB
	now func() time.Time
}

var _ persistence.Persistence = (*Persistence)(nil)

// Open opens (or creates) the database file at path.
func Open(path string) (*Persistence, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite doesn't handle multiple writers well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	p, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// New wraps an open database and creates the payload table if needed.
func New(db *sql.DB) (*Persistence, error) {
	p := &Persistence{db: db, now: time.Now}
	if err := p.migrate(); err != nil {
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return p, nil
}

func (p *Persistence) migrate() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS payloads (
			key        TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)`)
	return err
}

// Load implements persistence.Persistence.
func (p *Persistence) Load(ctx context.Context) (map[string][]byte, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT key, data FROM payloads`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query payloads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			key  string
			data []byte
		)
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("sqlite: scan payload: %w", err)
		}
		out[key] = data
	}
	return out, rows.Err()
}

// Write implements persistence.Persistence.
func (p *Persistence) Write(ctx context.Context, key string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO payloads (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, p.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite: write %q: %w", key, err)
	}
	return nil
}

// Close closes the database connection.
func (p *Persistence) Close() error {
	return p.db.Close()
}
