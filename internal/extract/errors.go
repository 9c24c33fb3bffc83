package extract

import (
	"errors"
	"fmt"

	"github.com/jonathan/profile-scraper/internal/types"
)

// ErrNoData reports that a section was absent or had no usable entries.
var ErrNoData = errors.New("no data found")

// GapError records why one field contributed nothing.
type GapError struct {
	Field types.Field
	Cause error
}

func (e *GapError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction gap: %s: %v", e.Field, e.Cause)
	}
	return fmt.Sprintf("extraction gap: %s", e.Field)
}

func (e *GapError) Unwrap() error {
	return e.Cause
}

// Is makes every GapError match ErrNoData.
func (e *GapError) Is(target error) bool {
	return target == ErrNoData
}
