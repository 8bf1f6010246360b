package library

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is reported when a store call outlives the gateway's deadline.
	ErrTimeout = errors.New("library operation timed out")
	// ErrNotFound is returned for an unknown library entry.
	ErrNotFound = errors.New("worksheet not found")
	// ErrNotConfirmed is returned when a delete was not confirmed by the user.
	ErrNotConfirmed = errors.New("delete not confirmed")
	// ErrInvalidEntry is returned for entries missing a name, grade, category or content.
	ErrInvalidEntry = errors.New("invalid worksheet entry")
)

// PersistenceError reports a failed library operation. Timeouts arrive as a
// PersistenceError wrapping ErrTimeout.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("library %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
