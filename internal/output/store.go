package output

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/profile-scraper/internal/db"
	"github.com/jonathan/profile-scraper/internal/types"
)

// RecordStore is the part of db.Store a StoreSink needs.
type RecordStore interface {
	CreateRun(ctx context.Context, runID uuid.UUID, total int) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status string, emitted int) error
	SaveProfileRecord(ctx context.Context, runID uuid.UUID, position int, rec types.ProfileRecord) error
}

// StoreSink saves records under one run, numbering them from 1 in arrival order.
type StoreSink struct {
	store    RecordStore
	runID    uuid.UUID
	position int
	saved    int
	finished bool
}

// NewStoreSink registers the run with the store and returns a sink for it.
func NewStoreSink(ctx context.Context, store RecordStore, runID uuid.UUID, total int) (*StoreSink, error) {
	if err := store.CreateRun(ctx, runID, total); err != nil {
		return nil, err
	}
	return &StoreSink{store: store, runID: runID}, nil
}

// Write saves rec at the next position. A failed save still consumes the
// position so later records keep their input order. The save ignores ctx
// cancellation: a record already handed to the file sinks is stored too.
func (s *StoreSink) Write(ctx context.Context, rec types.ProfileRecord) error {
	s.position++
	if err := s.store.SaveProfileRecord(context.WithoutCancel(ctx), s.runID, s.position, rec); err != nil {
		return err
	}
	s.saved++
	return nil
}

// Finish marks the run with status. Later calls are no-ops.
func (s *StoreSink) Finish(ctx context.Context, status string) error {
	if s.finished {
		return nil
	}
	s.finished = true
	if err := s.store.CompleteRun(ctx, s.runID, status, s.saved); err != nil {
		return fmt.Errorf("failed to finish run %s: %w", s.runID, err)
	}
	return nil
}

// Close finishes the run as completed unless Finish was already called.
func (s *StoreSink) Close() error {
	return s.Finish(context.Background(), db.RunStatusCompleted)
}

// Multi fans each record out to every sink. All sinks are attempted; their
// errors are joined.
type Multi []Sink

// Write hands rec to every sink.
func (m Multi) Write(ctx context.Context, rec types.ProfileRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
