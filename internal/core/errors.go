package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports a missing or malformed field. Nothing is written
// when it is returned.
type ValidationError struct {
	Field string
	Err   error
}

func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %v", e.Err)
	}
	return fmt.Sprintf("validation failed on %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ReferentialIntegrityError refuses a delete while transactions still
// reference the entity.
type ReferentialIntegrityError struct {
	Entity string
	ID     int64
	Count  int
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("cannot delete %s %d: referenced by %d transaction(s)", e.Entity, e.ID, e.Count)
}

// AtomicityError reports a scoped multi-write operation that failed and was
// rolled back.
type AtomicityError struct {
	Op  string
	Err error
}

func (e *AtomicityError) Error() string {
	return fmt.Sprintf("%s rolled back: %v", e.Op, e.Err)
}

func (e *AtomicityError) Unwrap() error { return e.Err }

// MalformedImportError rejects a backup document before anything is cleared.
type MalformedImportError struct {
	Reason string
	Err    error
}

func (e *MalformedImportError) Error() string {
	if e.Err == nil {
		return "malformed backup: " + e.Reason
	}
	return fmt.Sprintf("malformed backup: %s: %v", e.Reason, e.Err)
}

func (e *MalformedImportError) Unwrap() error { return e.Err }

// IsDomainError reports whether err is one of the typed errors callers
// react to, as opposed to an infrastructure failure.
func IsDomainError(err error) bool {
	var (
		ve *ValidationError
		re *ReferentialIntegrityError
		me *MalformedImportError
	)
	return errors.Is(err, ErrNotFound) || errors.As(err, &ve) || errors.As(err, &re) || errors.As(err, &me)
}
