package recgo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/recgo/record"
	"github.com/hupe1980/recgo/validate"
)

// Operation is the behaviour of a saga step.
//
// Invoke performs the step. It receives the step params and the results of
// the prior successful steps in completion order. Rollback compensates a
// successful Invoke given its result.
type Operation interface {
	Invoke(ctx context.Context, s *Store, params record.Record, past []StepResult) Result
	Rollback(ctx context.Context, s *Store, result Result) error
}

// Step is one unit of a saga.
type Step struct {
	ID     string
	Params record.Record
	Op     Operation
}

// StepResult pairs a step id with its result.
type StepResult struct {
	Step   string `json:"step"`
	Result Result `json:"result"`
}

// AtomicResult is the outcome of Atomic.
type AtomicResult struct {
	Success bool   `json:"success"`
	Saga    string `json:"saga"`
	// Results holds the results of the executed steps, most recent first.
	// On failure the first result is the failing step.
	Results []StepResult `json:"results"`
	// RollbackErrors collects the compensations that failed.
	RollbackErrors []error `json:"-"`
}

// Lookup returns the result of step in past.
func Lookup(past []StepResult, step string) (Result, bool) {
	for _, r := range past {
		if r.Step == step {
			return r.Result, true
		}
	}
	return Result{}, false
}

// Atomic executes steps in order and stops at the first unsuccessful
// result. The prior successful steps are then rolled back in reverse
// completion order. A failed rollback is reported and does not stop the
// remaining ones.
//
// The failing step itself is not compensated: its Invoke must either fail
// without side effects or clean up after itself.
func (s *Store) Atomic(ctx context.Context, steps ...Step) AtomicResult {
	start := time.Now()
	res := AtomicResult{Saga: uuid.NewString()}

	completed := make([]StepResult, 0, len(steps))
	for i, step := range steps {
		var result Result
		switch {
		case ctx.Err() != nil:
			result = errorResult(ctx.Err())
		case step.Op == nil:
			result = errorResult(fmt.Errorf("step %q has no operation", step.ID))
		default:
			result = step.Op.Invoke(ctx, s, step.Params.Clone(), slices.Clone(completed))
		}

		if !result.Success {
			// Compensate even when ctx was canceled.
			res.RollbackErrors = s.rollback(context.WithoutCancel(ctx), res.Saga, steps[:i], completed)
			completed = append(completed, StepResult{Step: step.ID, Result: result})
			res.Results = reversed(completed)

			s.opts.metricsCollector.RecordAtomic(i+1, false, time.Since(start))
			s.opts.logger.LogAtomic(ctx, res.Saga, i+1, false)
			return res
		}
		completed = append(completed, StepResult{Step: step.ID, Result: result})
	}

	res.Success = true
	res.Results = reversed(completed)
	s.opts.metricsCollector.RecordAtomic(len(steps), true, time.Since(start))
	s.opts.logger.LogAtomic(ctx, res.Saga, len(steps), true)
	return res
}

func (s *Store) rollback(ctx context.Context, saga string, steps []Step, completed []StepResult) []error {
	var errs []error
	for i := len(completed) - 1; i >= 0; i-- {
		err := steps[i].Op.Rollback(ctx, s, completed[i].Result)
		if err != nil {
			err = fmt.Errorf("rollback %q: %w", steps[i].ID, err)
			errs = append(errs, err)
		}
		s.opts.logger.LogRollback(ctx, saga, steps[i].ID, err)
	}
	return errs
}

func reversed(results []StepResult) []StepResult {
	out := slices.Clone(results)
	slices.Reverse(out)
	return out
}

// CodeError is the validation code of results produced from defects.
const CodeError = "error"

// errorResult converts a defect into an unsuccessful result.
func errorResult(err error) Result {
	return Result{Errors: validate.Errors{CodeError: {err.Error()}}}
}

// ErrRollback is wrapped by rollbacks whose compensation was refused.
var ErrRollback = errors.New("rollback refused")

// Link copies a field of the record produced by an earlier step into the
// params of a later one, e.g. the id of a created contact into the
// contact field of a transaction.
type Link struct {
	// Field is the params field to set.
	Field string
	// Step is the id of the earlier step.
	Step string
	// Source is the field of the earlier record. Defaults to "id".
	Source string
}

func applyLinks(params record.Record, links []Link, past []StepResult) (record.Record, validate.Errors) {
	if len(links) == 0 {
		return params, nil
	}
	if params == nil {
		params = record.Record{}
	}
	errs := validate.Errors{}
	for _, l := range links {
		res, ok := Lookup(past, l.Step)
		if !ok {
			errs.Add(l.Field, validate.CodeNotFound)
			continue
		}
		source := l.Source
		if source == "" {
			source = record.FieldID
		}
		params[l.Field] = res.Record.Get(source).Clone()
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return params, nil
}

// CreateOp creates a record. Its rollback removes it.
type CreateOp struct {
	ModelClass string
	Links      []Link
}

// Invoke implements Operation.
func (op CreateOp) Invoke(ctx context.Context, s *Store, params record.Record, past []StepResult) Result {
	params, errs := applyLinks(params, op.Links, past)
	if errs != nil {
		return failed(errs)
	}
	res, err := s.Create(ctx, op.ModelClass, params)
	if err != nil {
		return errorResult(err)
	}
	return res
}

// Rollback implements Operation.
func (op CreateOp) Rollback(ctx context.Context, s *Store, result Result) error {
	res, err := s.Remove(ctx, op.ModelClass, result.ID())
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%w: remove %s %s: %v", ErrRollback, op.ModelClass, result.ID(), res.Errors)
	}
	return nil
}

// UpdateOp updates the record ID. Its rollback restores the previous record.
type UpdateOp struct {
	ModelClass string
	ID         string
	Links      []Link
}

// Invoke implements Operation.
func (op UpdateOp) Invoke(ctx context.Context, s *Store, params record.Record, past []StepResult) Result {
	params, errs := applyLinks(params, op.Links, past)
	if errs != nil {
		return failed(errs)
	}
	res, err := s.Update(ctx, op.ModelClass, op.ID, params)
	if err != nil {
		return errorResult(err)
	}
	return res
}

// Rollback implements Operation.
func (op UpdateOp) Rollback(ctx context.Context, s *Store, result Result) error {
	if result.Previous == nil {
		return fmt.Errorf("%w: update %s %s: no previous record", ErrRollback, op.ModelClass, op.ID)
	}
	return s.restore(ctx, op.ModelClass, result.Previous)
}

// RemoveOp removes the record ID. Its rollback re-inserts the removed
// record under its original id.
type RemoveOp struct {
	ModelClass string
	ID         string
}

// Invoke implements Operation.
func (op RemoveOp) Invoke(ctx context.Context, s *Store, _ record.Record, _ []StepResult) Result {
	res, err := s.Remove(ctx, op.ModelClass, op.ID)
	if err != nil {
		return errorResult(err)
	}
	return res
}

// Rollback implements Operation.
func (op RemoveOp) Rollback(ctx context.Context, s *Store, result Result) error {
	if result.Previous == nil {
		return fmt.Errorf("%w: remove %s %s: no removed record", ErrRollback, op.ModelClass, op.ID)
	}
	return s.restore(ctx, op.ModelClass, result.Previous)
}

// FuncOp adapts functions to Operation. A nil RollbackFunc is a no-op.
type FuncOp struct {
	InvokeFunc   func(ctx context.Context, s *Store, params record.Record, past []StepResult) Result
	RollbackFunc func(ctx context.Context, s *Store, result Result) error
}

// Invoke implements Operation.
func (op FuncOp) Invoke(ctx context.Context, s *Store, params record.Record, past []StepResult) Result {
	if op.InvokeFunc == nil {
		return errorResult(errors.New("no invoke function"))
	}
	return op.InvokeFunc(ctx, s, params, past)
}

// Rollback implements Operation.
func (op FuncOp) Rollback(ctx context.Context, s *Store, result Result) error {
	if op.RollbackFunc == nil {
		return nil
	}
	return op.RollbackFunc(ctx, s, result)
}
