package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("store: unique constraint violated")
)

// ConflictError names the column whose unique constraint rejected a write.
type ConflictError struct {
	Table string
	Field string
	Err   error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("store: %s.%s already exists", e.Table, e.Field)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *ConflictError) Unwrap() error { return e.Err }
