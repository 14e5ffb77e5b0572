package monitor

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no snapshot matches an id.
	ErrNotFound = errors.New("snapshot not found")
	// ErrConflict is returned by Store.Insert when the address already has a row.
	ErrConflict = errors.New("server address already exists")
	// ErrTimeout is returned when an operation exceeded its deadline or was
	// cancelled. No partial write is left behind.
	ErrTimeout = errors.New("operation timed out")
	// ErrInternal is the opaque error surfaced for any other backend failure.
	ErrInternal = errors.New("internal error")
)

// ValidationError reports a malformed or missing report field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid report: " + e.Reason
	}
	return fmt.Sprintf("invalid report: %s %s", e.Field, e.Reason)
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
