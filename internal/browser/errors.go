package browser

import (
	"errors"
	"fmt"
)

// ErrClosed is returned once the underlying browser has gone away.
var ErrClosed = errors.New("browser closed")

// ErrNotFound is returned when a selector matched nothing.
var ErrNotFound = errors.New("element not found")

// Error represents a failed driver operation.
type Error struct {
	Op       string
	Selector string
	Cause    error
}

func (e *Error) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("browser %s %q: %v", e.Op, e.Selector, e.Cause)
	}
	return fmt.Sprintf("browser %s: %v", e.Op, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func opError(op, selector string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Op: op, Selector: selector, Cause: cause}
}
