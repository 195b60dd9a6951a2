package recgo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by operations called before InitData.
	ErrNotInitialized = errors.New("store is not initialized")

	// ErrUnknownModelClass is returned for model classes without a schema.
	ErrUnknownModelClass = errors.New("unknown model class")

	// ErrInvalidID is returned when an id cannot be assigned or parsed.
	ErrInvalidID = errors.New("invalid id")

	// ErrNilPersistence is returned by New without a persistence.
	ErrNilPersistence = errors.New("persistence must not be nil")
)

// ErrDecode indicates a persisted payload that could not be decoded.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrDecode struct {
	Key   string
	cause error
}

func (e *ErrDecode) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Key, e.cause)
}

func (e *ErrDecode) Unwrap() error { return e.cause }

func unknownModelClass(modelClass string) error {
	return fmt.Errorf("%w: %s", ErrUnknownModelClass, modelClass)
}
