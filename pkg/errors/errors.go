package custom_error

import (
	"errors"
	"fmt"
)

// Sentinel errors for single-entity operations. Callers match with errors.Is.
var (
	// ErrPreconditionFailed means a transition was attempted from an invalid
	// starting state, e.g. checkout of a non-available item. Racing callers
	// must re-fetch and retry; the engine never queues.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrPermissionDenied means the actor lacks standing for a self-service
	// action, e.g. checkin of equipment assigned to someone else.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound means the referenced equipment or user does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError is a row-local field failure. It is collected, never fatal
// to the batch it came from.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// DuplicateKeyError is a unique-field collision, either inside a batch or
// against the store.
type DuplicateKeyError struct {
	Field string
	Value string
}

func (e *DuplicateKeyError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("duplicate key: %s", e.Value)
	}
	return fmt.Sprintf("duplicate %s '%s'", e.Field, e.Value)
}

// PersistenceError wraps a failed store transaction. It is fatal to the
// enclosing atomic unit, which has already been rolled back when the caller
// sees it.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type ForeignKeyViolationError struct {
	message string
	code    string // PostgreSQL error code (e.g., "23503")
}

func (f *ForeignKeyViolationError) Error() string {
	return fmt.Sprintf("%s (code: %s)", f.message, f.code)
}

// WrapDBError maps a PostgreSQL error code into the taxonomy.
func WrapDBError(message, code string) error {
	switch code {
	case "23505":
		return &DuplicateKeyError{Value: message}
	case "23503":
		return &ForeignKeyViolationError{
			message: "Value is already used by other resources " + message,
			code:    code,
		}
	default:
		return fmt.Errorf("uncategorized error occurred with code %s: %s", code, message)
	}
}
