package recgo

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/hupe1980/recgo/index"
	"github.com/hupe1980/recgo/persistence"
	"github.com/hupe1980/recgo/record"
	"github.com/hupe1980/recgo/schema"
)

// Store is a schema-driven record store.
//
// A Store owns three caches: schemas, indexes and data. They are loaded once
// from the persistence by InitData and kept consistent by the mutation
// methods, which write every changed payload through to the persistence.
//
// Store is safe for concurrent use. Reads share a lock; every mutation holds
// it exclusively. Atomic runs its steps as separate mutations, so callers
// interleaving with a saga may observe its intermediate states.
type Store struct {
	mu sync.RWMutex

	persistence persistence.Persistence
	opts        options

	initialized bool
	schemas     schema.Registry
	indexes     *index.Indexes
	data        record.Data
	sequences   map[string]uint64
}

// New creates a Store on top of p. Call InitData before use.
func New(p persistence.Persistence, optFns ...Option) (*Store, error) {
	if p == nil {
		return nil, ErrNilPersistence
	}
	return &Store{
		persistence: p,
		opts:        applyOptions(optFns),
		schemas:     schema.Registry{},
		indexes:     index.New(),
		data:        record.Data{},
		sequences:   map[string]uint64{},
	}, nil
}

// Logger returns the logger of the store.
func (s *Store) Logger() *Logger {
	return s.opts.logger
}

// Initialized reports whether InitData completed.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// InitData loads schemas, indexes, sequences and collections from the
// persistence. It is a no-op once the store is initialized unless force is
// set. Indexes are rebuilt from the data when none were persisted.
func (s *Store) InitData(ctx context.Context, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized && !force {
		return nil
	}

	models, records, rebuilt, err := s.load(ctx)
	s.opts.logger.LogInit(ctx, models, records, rebuilt, err)
	return err
}

func (s *Store) load(ctx context.Context) (models, records int, rebuilt bool, err error) {
	payloads, err := s.persistence.Load(ctx)
	if err != nil {
		return 0, 0, false, fmt.Errorf("load persistence: %w", err)
	}

	schemas := schema.Registry{}
	if raw, ok := payloads[persistence.SchemasKey]; ok {
		if err := s.decode(persistence.SchemasKey, raw, &schemas); err != nil {
			return 0, 0, false, err
		}
	}
	if err := schemas.Validate(persistence.ReservedKeys()...); err != nil {
		return 0, 0, false, err
	}

	sequences := map[string]uint64{}
	if raw, ok := payloads[persistence.SequencesKey]; ok {
		if err := s.decode(persistence.SequencesKey, raw, &sequences); err != nil {
			return 0, 0, false, err
		}
	}

	data := record.Data{}
	for key, raw := range payloads {
		if slices.Contains(persistence.ReservedKeys(), key) {
			continue
		}
		coll := record.NewCollection()
		if err := s.decode(key, raw, coll); err != nil {
			return 0, 0, false, err
		}
		if _, ok := schemas[key]; !ok {
			s.opts.logger.WarnContext(ctx, "collection without schema", "model", key)
		}
		data[key] = coll
		records += coll.Len()
	}

	var indexes *index.Indexes
	if raw, ok := payloads[persistence.IndexesKey]; ok {
		indexes = index.New()
		if err := s.decode(persistence.IndexesKey, raw, indexes); err != nil {
			return 0, 0, false, err
		}
		indexes.Normalize()
	} else {
		if indexes, err = index.Rebuild(schemas, data); err != nil {
			return 0, 0, false, fmt.Errorf("rebuild indexes: %w", err)
		}
		rebuilt = true
	}

	s.schemas = schemas
	s.sequences = sequences
	s.data = data
	s.indexes = indexes
	s.initialized = true

	if rebuilt && records > 0 {
		s.persist(ctx, persistence.IndexesKey, s.indexes)
	}
	return len(schemas), records, rebuilt, nil
}

func (s *Store) decode(key string, raw []byte, v any) error {
	if err := s.opts.codec.Unmarshal(raw, v); err != nil {
		return &ErrDecode{Key: key, cause: err}
	}
	return nil
}

// ListModelClasses returns the model classes with a schema, sorted.
func (s *Store) ListModelClasses() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	return s.schemas.ModelClasses(), nil
}

// GetSchema returns a copy of the schema of modelClass.
func (s *Store) GetSchema(modelClass string) (*schema.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sch, err := s.schema(modelClass)
	if err != nil {
		return nil, err
	}
	return cloneSchema(sch), nil
}

// schema returns the schema of modelClass. Callers hold the lock.
func (s *Store) schema(modelClass string) (*schema.Schema, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	sch, err := s.schemas.Get(modelClass)
	if err != nil {
		return nil, unknownModelClass(modelClass)
	}
	return sch, nil
}

func cloneSchema(sch *schema.Schema) *schema.Schema {
	out := *sch
	out.Fields = maps.Clone(sch.Fields)
	out.Constraints.Primary = slices.Clone(sch.Constraints.Primary)
	out.Constraints.Unique = slices.Clone(sch.Constraints.Unique)
	out.Constraints.Foreign = maps.Clone(sch.Constraints.Foreign)
	out.Constraints.Required = slices.Clone(sch.Constraints.Required)
	out.Indexes.Filter = maps.Clone(sch.Indexes.Filter)
	return &out
}

// persist encodes v and writes it under key. Failures are logged and
// counted, never returned. Callers hold the lock.
func (s *Store) persist(ctx context.Context, key string, v any) {
	data, err := s.opts.codec.Marshal(v)
	if err == nil {
		err = s.persistence.Write(ctx, key, data)
	}
	if err != nil {
		s.opts.metricsCollector.RecordPersistError(key)
		s.opts.logger.LogPersist(ctx, key, err)
	}
}

// nextID reserves the next id of modelClass: one above the larger of the
// highest id ever assigned and the highest id present.
func (s *Store) nextID(modelClass string) (string, error) {
	hwm := max(s.sequences[modelClass], s.data[modelClass].MaxID())
	if hwm >= math.MaxUint32 {
		return "", fmt.Errorf("%w: %s: id space exhausted", ErrInvalidID, modelClass)
	}
	s.sequences[modelClass] = hwm + 1
	return record.FormatID(uint32(hwm + 1)), nil
}

func (s *Store) now() string {
	return s.opts.clock().UTC().Format(record.TimeLayout)
}
