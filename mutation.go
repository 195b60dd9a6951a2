package recgo

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/recgo/persistence"
	"github.com/hupe1980/recgo/record"
	"github.com/hupe1980/recgo/validate"
)

// Result is the outcome of a mutation.
//
// Business failures (validation errors, notFound, isUsed) are reported in
// Errors with Success=false. The error return of the mutation methods is
// reserved for defects such as unknown model classes.
type Result struct {
	Success bool            `json:"success"`
	Record  record.Record   `json:"record,omitempty"`
	Errors  validate.Errors `json:"errors,omitempty"`

	// Previous is the record before an update or remove.
	Previous record.Record `json:"-"`
}

// ID returns the id of the result record.
func (r Result) ID() string {
	return r.Record.ID()
}

func failed(errs validate.Errors) Result {
	return Result{Errors: errs}
}

// sanitize drops the fields that callers cannot set.
func sanitize(params record.Record) record.Record {
	return params.Without(record.FieldID, record.FieldIncludes, record.FieldCreatedAt, record.FieldUpdatedAt)
}

// Create validates params and stores them as a new record of modelClass.
//
// Schema defaults are merged under params before validation. The record
// gets the next id of the model class and fresh createdAt/updatedAt stamps.
func (s *Store) Create(ctx context.Context, modelClass string, params record.Record) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sch, err := s.schema(modelClass)
	if err != nil {
		return Result{}, err
	}

	rec := sch.Defaults().Merge(sanitize(params))
	if v := s.opts.validator.Validate(modelClass, rec, s.schemas, s.indexes, s.data); !v.Valid {
		s.opts.metricsCollector.RecordCreate(time.Since(start), false)
		s.opts.logger.LogCreate(ctx, modelClass, "", v.Errors)
		return failed(v.Errors), nil
	}

	id, err := s.nextID(modelClass)
	if err != nil {
		return Result{}, err
	}
	now := s.now()
	rec[record.FieldID] = record.String(id)
	rec[record.FieldCreatedAt] = record.String(now)
	rec[record.FieldUpdatedAt] = record.String(now)

	if err := s.indexes.Add(sch, modelClass, id, rec); err != nil {
		return Result{}, err
	}
	coll := s.data.Collection(modelClass)
	coll.Put(rec)

	s.persist(ctx, modelClass, coll)
	s.persist(ctx, persistence.IndexesKey, s.indexes)
	s.persist(ctx, persistence.SequencesKey, s.sequences)

	s.opts.metricsCollector.RecordCreate(time.Since(start), true)
	s.opts.logger.LogCreate(ctx, modelClass, id, nil)
	return Result{Success: true, Record: rec.Clone()}, nil
}

// Update merges params into the record id of modelClass. The merged record
// is validated as a whole; on success only the index entries invalidated by
// the change are removed.
func (s *Store) Update(ctx context.Context, modelClass, id string, params record.Record) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sch, err := s.schema(modelClass)
	if err != nil {
		return Result{}, err
	}

	coll := s.data[modelClass]
	existing, ok := coll.Get(id)
	if !ok {
		s.opts.metricsCollector.RecordUpdate(time.Since(start), false)
		s.opts.logger.LogUpdate(ctx, modelClass, id, validate.NotFound())
		return failed(validate.NotFound()), nil
	}

	merged := existing.Merge(sanitize(params))
	if v := s.opts.validator.Validate(modelClass, merged, s.schemas, s.indexes, s.data); !v.Valid {
		s.opts.metricsCollector.RecordUpdate(time.Since(start), false)
		s.opts.logger.LogUpdate(ctx, modelClass, id, v.Errors)
		return failed(v.Errors), nil
	}
	merged[record.FieldUpdatedAt] = record.String(s.now())

	if err := s.indexes.Update(sch, modelClass, id, existing, merged); err != nil {
		return Result{}, err
	}
	coll.Put(merged)

	s.persist(ctx, modelClass, coll)
	s.persist(ctx, persistence.IndexesKey, s.indexes)

	s.opts.metricsCollector.RecordUpdate(time.Since(start), true)
	s.opts.logger.LogUpdate(ctx, modelClass, id, nil)
	return Result{Success: true, Record: merged.Clone(), Previous: existing.Clone()}, nil
}

// Remove deletes the record id of modelClass unless other records still
// reference it. All index entries the record contributed are removed,
// including filter buckets of other model classes keyed by it.
func (s *Store) Remove(ctx context.Context, modelClass, id string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sch, err := s.schema(modelClass)
	if err != nil {
		return Result{}, err
	}

	coll := s.data[modelClass]
	rec, ok := coll.Get(id)
	if !ok {
		s.opts.metricsCollector.RecordRemove(time.Since(start), false)
		s.opts.logger.LogRemove(ctx, modelClass, id, validate.NotFound())
		return failed(validate.NotFound()), nil
	}
	if s.opts.validator.IsUsed(modelClass, rec, s.schemas, s.indexes, s.data) {
		s.opts.metricsCollector.RecordRemove(time.Since(start), false)
		s.opts.logger.LogRemove(ctx, modelClass, id, validate.IsUsed())
		return failed(validate.IsUsed()), nil
	}

	coll.Delete(id)
	s.persist(ctx, modelClass, coll)

	if err := s.indexes.Remove(sch, modelClass, id, rec); err != nil {
		return Result{}, err
	}
	s.indexes.Cleanup(s.schemas, modelClass, rec)
	s.persist(ctx, persistence.IndexesKey, s.indexes)

	s.opts.metricsCollector.RecordRemove(time.Since(start), true)
	s.opts.logger.LogRemove(ctx, modelClass, id, nil)
	return Result{Success: true, Record: rec.Clone(), Previous: rec.Clone()}, nil
}

// IsUsed reports whether other records reference the record id of
// modelClass. It is false for absent records.
func (s *Store) IsUsed(modelClass, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.schema(modelClass); err != nil {
		return false
	}
	rec, ok := s.data.Lookup(modelClass, id)
	if !ok {
		return false
	}
	return s.opts.validator.IsUsed(modelClass, rec, s.schemas, s.indexes, s.data)
}

// restore writes rec back under its own id without validation, replacing
// the current record if there is one. Saga rollbacks use it to undo updates
// and removals.
func (s *Store) restore(ctx context.Context, modelClass string, rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sch, err := s.schema(modelClass)
	if err != nil {
		return err
	}
	id := rec.ID()
	if _, err := record.ParseID(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	coll := s.data.Collection(modelClass)
	if current, ok := coll.Get(id); ok {
		err = s.indexes.Update(sch, modelClass, id, current, rec)
	} else {
		err = s.indexes.Add(sch, modelClass, id, rec)
	}
	if err != nil {
		return err
	}
	coll.Put(rec.Clone())

	s.persist(ctx, modelClass, coll)
	s.persist(ctx, persistence.IndexesKey, s.indexes)
	return nil
}
