package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/profile-scraper/internal/types"
)

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusCancelled = "cancelled"
	RunStatusFailed    = "failed"
)

// Run represents one batch run
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Status      string     `json:"status"`
	Total       int        `json:"total"`
	Emitted     int        `json:"emitted"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StoredRecord is a profile record together with where it sat in its run
type StoredRecord struct {
	RunID     uuid.UUID           `json:"run_id"`
	Position  int                 `json:"position"`
	Record    types.ProfileRecord `json:"record"`
	CreatedAt time.Time           `json:"created_at"`
}

// Store persists runs and their records. DB (PostgreSQL) and SQLite implement it.
type Store interface {
	EnsureSchema(ctx context.Context) error
	CreateRun(ctx context.Context, runID uuid.UUID, total int) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status string, emitted int) error
	GetRun(ctx context.Context, runID uuid.UUID) (*Run, error)
	SaveProfileRecord(ctx context.Context, runID uuid.UUID, position int, rec types.ProfileRecord) error
	ListProfileRecords(ctx context.Context, runID uuid.UUID) ([]StoredRecord, error)
	Close() error
}
