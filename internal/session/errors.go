package session

import (
	"errors"
	"fmt"
)

// ErrAuthTimeout reports that the post-login marker never appeared. Slow
// networks and rejected credentials are indistinguishable from here.
var ErrAuthTimeout = errors.New("authentication timed out")

// ErrSessionInvalid is returned when the session was lost or closed.
var ErrSessionInvalid = errors.New("session is no longer valid")

// AuthError represents a failed login attempt at a given step.
type AuthError struct {
	Step  string
	Cause error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error: %s: %v", e.Step, e.Cause)
	}
	return fmt.Sprintf("auth error: %s", e.Step)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// Is makes every AuthError match ErrAuthTimeout.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthTimeout
}
