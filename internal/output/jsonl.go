package output

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/profile-scraper/internal/schemas"
	"github.com/jonathan/profile-scraper/internal/types"
)

// JSONLSink writes one JSON object per line. When validation is on, records
// that do not match the profile record schema are rejected, not written.
type JSONLSink struct {
	w        *bufio.Writer
	closer   io.Closer
	validate bool
}

// NewJSONL returns a sink writing to w.
func NewJSONL(w io.Writer, validate bool) *JSONLSink {
	return &JSONLSink{w: bufio.NewWriter(w), validate: validate}
}

// CreateJSONL creates (or truncates) path and returns a validating sink writing to it.
func CreateJSONL(path string) (*JSONLSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	s := NewJSONL(f, true)
	s.closer = f
	return s, nil
}

// Write appends rec as one line.
func (s *JSONLSink) Write(_ context.Context, rec types.ProfileRecord) error {
	rec.Normalize()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", rec.Source, err)
	}
	if s.validate {
		if err := schemas.ValidateRecordJSON(data); err != nil {
			return fmt.Errorf("record %s rejected: %w", rec.Source, err)
		}
	}
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write record %s: %w", rec.Source, err)
	}
	return s.w.Flush()
}

// Close flushes and, for sinks created with CreateJSONL, closes the file.
func (s *JSONLSink) Close() error {
	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
		s.closer = nil
	}
	return err
}
