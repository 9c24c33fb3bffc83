package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonathan/profile-scraper/internal/types"
)

var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS scrape_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		emitted INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		completed_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS profile_records (
		run_id TEXT NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		source TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		record TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_profile_records_source ON profile_records (source)`,
}

// SQLite is a file-backed Store for runs without a database server
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database file at path.
// ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and writes serialized.
	conn.SetMaxOpenConns(1)

	for _, p := range sqlitePragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &SQLite{db: conn}, nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables if they do not exist
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// CreateRun records the start of a batch run
func (s *SQLite) CreateRun(ctx context.Context, runID uuid.UUID, total int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_runs (id, status, total, created_at) VALUES (?, ?, ?, ?)`,
		runID.String(), RunStatusRunning, total, now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun marks a run as finished with the given status
func (s *SQLite) CompleteRun(ctx context.Context, runID uuid.UUID, status string, emitted int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scrape_runs SET status = ?, emitted = ?, completed_at = ? WHERE id = ?`,
		status, emitted, now(), runID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil when it does not exist.
func (s *SQLite) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var (
		run         Run
		id, created string
		completed   sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, total, emitted, created_at, completed_at FROM scrape_runs WHERE id = ?`,
		runID.String(),
	).Scan(&id, &run.Status, &run.Total, &run.Emitted, &created, &completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("failed to parse run id: %w", err)
	}
	if run.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if completed.Valid {
		t, err := parseTime(completed.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

// SaveProfileRecord stores the record at position within runID, replacing
// any record already stored there
func (s *SQLite) SaveProfileRecord(ctx context.Context, runID uuid.UUID, position int, rec types.ProfileRecord) error {
	jsonBytes, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profile_records (run_id, position, source, name, record, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, position) DO UPDATE SET
		   source = excluded.source, name = excluded.name, record = excluded.record, created_at = excluded.created_at`,
		runID.String(), position, rec.Source, rec.Name, string(jsonBytes), now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save record %d: %w", position, err)
	}
	return nil
}

// ListProfileRecords returns every record of a run in position order
func (s *SQLite) ListProfileRecords(ctx context.Context, runID uuid.UUID) ([]StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, record, created_at FROM profile_records WHERE run_id = ? ORDER BY position`,
		runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []StoredRecord
	for rows.Next() {
		var (
			content, created string
		)
		sr := StoredRecord{RunID: runID}
		if err := rows.Scan(&sr.Position, &content, &created); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if sr.Record, err = decodeRecord([]byte(content)); err != nil {
			return nil, err
		}
		if sr.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		records = append(records, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}
