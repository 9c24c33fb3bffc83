package batch

import (
	"errors"
	"fmt"
)

// ErrUnexpectedFault marks a failure that escaped the per-profile pipeline.
var ErrUnexpectedFault = errors.New("unexpected fault")

// FaultError represents an unexpected failure while processing one identifier.
type FaultError struct {
	Identifier string
	Cause      error
}

func (e *FaultError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fault processing %s: %v", e.Identifier, e.Cause)
	}
	return fmt.Sprintf("fault processing %s", e.Identifier)
}

func (e *FaultError) Unwrap() error {
	return e.Cause
}

// Is makes every FaultError match ErrUnexpectedFault.
func (e *FaultError) Is(target error) bool {
	return target == ErrUnexpectedFault
}
