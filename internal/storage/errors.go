package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a habit or proof does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPreconditionFailed is returned when a conditional update lost a race.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrUnavailable wraps transient I/O failures talking to a store.
	ErrUnavailable = errors.New("store unavailable")
	// ErrConflict is returned when inserting a record whose key already exists.
	ErrConflict = errors.New("already exists")
)

// Unavailable wraps err as a store failure for op. Both ErrUnavailable and err
// stay reachable through errors.Is/As.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
