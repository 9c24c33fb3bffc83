// Package output writes profile records to files and stores as they arrive.
package output

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/profile-scraper/internal/types"
)

// CSVHeader is the first row of every CSV file.
var CSVHeader = []string{
	"LinkedIn URL",
	"Name",
	"Bio",
	"Socials",
	"Experience",
	"Education",
	"Certifications",
	"Projects",
}

// Sink accepts records one at a time and releases its resources on Close.
type Sink interface {
	Write(ctx context.Context, rec types.ProfileRecord) error
	Close() error
}

// CSVSink writes one row per record. Mapping fields are encoded as JSON
// objects with sorted keys. Each row is flushed as soon as it is written so
// an interrupted run keeps everything emitted so far.
type CSVSink struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSV writes the header to w and returns a sink appending rows to it.
func NewCSV(w io.Writer) (*CSVSink, error) {
	s := &CSVSink{w: csv.NewWriter(w)}
	if err := s.writeRow(CSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return s, nil
}

// CreateCSV creates (or truncates) path and returns a sink writing to it.
func CreateCSV(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	s, err := NewCSV(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// Row renders rec as CSV fields in header order.
func Row(rec types.ProfileRecord) ([]string, error) {
	rec.Normalize()
	row := []string{rec.Source, rec.Name, rec.Bio}
	for _, f := range types.MappingFields {
		data, err := json.Marshal(rec.Mapping(f))
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", f, err)
		}
		row = append(row, string(data))
	}
	return row, nil
}

func (s *CSVSink) writeRow(row []string) error {
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// Write appends one row.
func (s *CSVSink) Write(_ context.Context, rec types.ProfileRecord) error {
	row, err := Row(rec)
	if err != nil {
		return err
	}
	if err := s.writeRow(row); err != nil {
		return fmt.Errorf("failed to write CSV row for %s: %w", rec.Source, err)
	}
	return nil
}

// Close flushes and, for sinks created with CreateCSV, closes the file.
func (s *CSVSink) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
		s.closer = nil
	}
	return err
}
