package recgo

import (
	"context"
	"fmt"

	"github.com/hupe1980/recgo/index"
	"github.com/hupe1980/recgo/persistence"
	"github.com/hupe1980/recgo/record"
)

// Download returns a copy of the records of modelClass in stored order.
func (s *Store) Download(modelClass string) ([]record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.schema(modelClass); err != nil {
		return nil, err
	}
	return s.data[modelClass].Clone().Records(), nil
}

// Upload replaces the collection of modelClass with records and persists
// it. Records are neither validated nor indexed; follow with UploadIndexes
// or RebuildIndexes. Every record needs a numeric id, otherwise nothing is
// replaced and ErrInvalidID is returned.
func (s *Store) Upload(ctx context.Context, modelClass string, records []record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.schema(modelClass); err != nil {
		return err
	}

	coll := record.NewCollection()
	for i, rec := range records {
		if _, err := record.ParseID(rec.ID()); err != nil {
			return fmt.Errorf("%w: %s record %d: %q", ErrInvalidID, modelClass, i, rec.ID())
		}
		coll.Put(rec.Without(record.FieldIncludes))
	}
	s.data[modelClass] = coll
	s.persist(ctx, modelClass, coll)
	return nil
}

// DownloadIndexes returns a copy of the indexes.
func (s *Store) DownloadIndexes() (*index.Indexes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	return s.indexes.Clone(), nil
}

// UploadIndexes replaces the indexes with a copy of idx and persists them.
func (s *Store) UploadIndexes(ctx context.Context, idx *index.Indexes) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.indexes = idx.Clone()
	s.persist(ctx, persistence.IndexesKey, s.indexes)
	return nil
}

// RebuildIndexes derives every index from the stored records and persists
// the result. Records that cannot be indexed are skipped and reported in
// the returned error.
func (s *Store) RebuildIndexes(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	idx, err := index.Rebuild(s.schemas, s.data)
	s.indexes = idx
	s.persist(ctx, persistence.IndexesKey, s.indexes)
	return err
}
