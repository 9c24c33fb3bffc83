package main

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/profile-scraper/internal/db"
	"github.com/jonathan/profile-scraper/internal/schemas"
	"github.com/jonathan/profile-scraper/internal/types"
)

// storedRun writes a two-record run to a fresh SQLite file.
func storedRun(t *testing.T) (string, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	store, err := db.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	require.NoError(t, store.EnsureSchema(ctx))

	runID := uuid.New()
	require.NoError(t, store.CreateRun(ctx, runID, 2))

	jane := types.NewProfileRecord("https://www.linkedin.com/in/jdoe/")
	jane.Name = "Jane Doe"
	jane.Experience["Acme"] = "Engineer"
	require.NoError(t, store.SaveProfileRecord(ctx, runID, 1, jane))
	require.NoError(t, store.SaveProfileRecord(ctx, runID, 2, types.NewProfileRecord("ghost")))
	require.NoError(t, store.CompleteRun(ctx, runID, db.RunStatusCompleted, 2))

	return path, runID
}

func TestShowRun_Table(t *testing.T) {
	path, runID := storedRun(t)
	ctx := context.Background()

	store, err := openRunStore(ctx, path, "")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	var buf bytes.Buffer
	require.NoError(t, showRun(ctx, &buf, store, runID, false))

	output := buf.String()
	assert.Contains(t, strings.ToLower(output), strings.ToLower(runID.String()))
	assert.Contains(t, output, "Jane Doe")
	assert.Contains(t, output, "ghost")
	assert.Contains(t, strings.ToLower(output), "completed")
	assert.Less(t, strings.Index(output, "Jane Doe"), strings.Index(output, "ghost"), "rows follow input order")
}

func TestShowRun_JSONLinesValidate(t *testing.T) {
	path, runID := storedRun(t)
	ctx := context.Background()

	store, err := openRunStore(ctx, path, "")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	var buf bytes.Buffer
	require.NoError(t, showRun(ctx, &buf, store, runID, true))

	count, err := schemas.ValidateRecordLines(&buf, "stdout")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestShowRun_NotFound(t *testing.T) {
	path, _ := storedRun(t)
	ctx := context.Background()

	store, err := openRunStore(ctx, path, "")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	err = showRun(ctx, &bytes.Buffer{}, store, uuid.New(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestOpenRunStore_NoBackend(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := openRunStore(context.Background(), "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--sqlite")
}

func TestOpenRunStore_MissingSQLiteFile(t *testing.T) {
	_, err := openRunStore(context.Background(), filepath.Join(t.TempDir(), "nope.db"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}

func TestRunsShowCommand_InvalidID(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "runs", "show", "not-a-uuid", "--sqlite", "runs.db")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err, "command should fail")
	assert.Contains(t, string(output), "invalid run ID")
}

func TestRunsShowCommand_Success(t *testing.T) {
	binaryPath := getBinaryPath(t)
	path, runID := storedRun(t)

	cmd := exec.Command(binaryPath, "runs", "show", runID.String(), "--sqlite", path)
	output, err := cmd.CombinedOutput()

	assert.NoError(t, err, "command should succeed: %s", output)
	assert.Contains(t, string(output), "Jane Doe")
}
