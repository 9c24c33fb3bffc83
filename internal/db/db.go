// Package db persists batch runs and their profile records in PostgreSQL or SQLite.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/profile-scraper/internal/types"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS scrape_runs (
		id UUID PRIMARY KEY,
		status TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		emitted INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS profile_records (
		run_id UUID NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		source TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		record JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_profile_records_source ON profile_records (source)`,
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

var _ Store = (*DB)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// EnsureSchema creates the tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// CreateRun records the start of a batch run
func (db *DB) CreateRun(ctx context.Context, runID uuid.UUID, total int) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO scrape_runs (id, status, total) VALUES ($1, $2, $3)`,
		runID, RunStatusRunning, total,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun marks a run as finished with the given status
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string, emitted int) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE scrape_runs SET status = $1, emitted = $2, completed_at = NOW() WHERE id = $3`,
		status, emitted, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil when it does not exist.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, status, total, emitted, created_at, completed_at
		 FROM scrape_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Status, &run.Total, &run.Emitted, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// SaveProfileRecord stores the record at position within runID, replacing
// any record already stored there
func (db *DB) SaveProfileRecord(ctx context.Context, runID uuid.UUID, position int, rec types.ProfileRecord) error {
	jsonBytes, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO profile_records (run_id, position, source, name, record)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id, position) DO UPDATE SET source = $3, name = $4, record = $5, created_at = NOW()`,
		runID, position, rec.Source, rec.Name, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save record %d: %w", position, err)
	}
	return nil
}

// ListProfileRecords returns every record of a run in position order
func (db *DB) ListProfileRecords(ctx context.Context, runID uuid.UUID) ([]StoredRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT run_id, position, record, created_at
		 FROM profile_records WHERE run_id = $1 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []StoredRecord
	for rows.Next() {
		var sr StoredRecord
		var content []byte
		if err := rows.Scan(&sr.RunID, &sr.Position, &content, &sr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if sr.Record, err = decodeRecord(content); err != nil {
			return nil, err
		}
		records = append(records, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

func encodeRecord(rec types.ProfileRecord) ([]byte, error) {
	rec.Normalize()
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (types.ProfileRecord, error) {
	var rec types.ProfileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	rec.Normalize()
	return rec, nil
}
