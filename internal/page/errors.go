package page

import (
	"errors"
	"fmt"
)

// ErrLoadTimeout reports that a profile page never became ready.
var ErrLoadTimeout = errors.New("page load timed out")

// LoadError represents a failed navigation or readiness wait for one URL.
type LoadError struct {
	URL   string
	Cause error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("load error: %s: %v", e.URL, e.Cause)
	}
	return fmt.Sprintf("load error: %s", e.URL)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Is makes every LoadError match ErrLoadTimeout.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoadTimeout
}
