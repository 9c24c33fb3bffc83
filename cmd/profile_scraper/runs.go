package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/profile-scraper/internal/db"
	"github.com/jonathan/profile-scraper/internal/observability"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect runs saved with --sqlite or --db-url",
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a stored run and its records",
	Long: `Prints the status of a stored run and one row per saved record, in input order.

With --json the records are written as JSON lines instead, one per record, ready for the validate command.`,
	Args: cobra.ExactArgs(1),
	RunE: runRunsShow,
}

var runsOpts struct {
	sqlite      string
	databaseURL string
	asJSON      bool
}

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

func init() {
	f := runsShowCmd.Flags()
	f.StringVar(&runsOpts.sqlite, "sqlite", "", "SQLite database the run was stored in")
	f.StringVar(&runsOpts.databaseURL, "db-url", "", "PostgreSQL database the run was stored in (defaults to DATABASE_URL env var)")
	f.BoolVar(&runsOpts.asJSON, "json", false, "Write the records as JSON lines")

	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	runID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run ID %q: %w", args[0], err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openRunStore(ctx, runsOpts.sqlite, runsOpts.databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return showRun(ctx, cmd.OutOrStdout(), store, runID, runsOpts.asJSON)
}

// openRunStore opens the SQLite file when one is named, PostgreSQL otherwise.
func openRunStore(ctx context.Context, sqlitePath, databaseURL string) (db.Store, error) {
	if sqlitePath != "" {
		if _, err := os.Stat(sqlitePath); err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", sqlitePath, err)
		}
		store, err := db.OpenSQLite(ctx, sqlitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return nil, errors.New("one of --sqlite or --db-url is required")
	}
	store, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return store, nil
}

func showRun(ctx context.Context, out io.Writer, store db.Store, runID uuid.UUID, asJSON bool) error {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	records, err := store.ListProfileRecords(ctx, runID)
	if err != nil {
		return err
	}

	if !asJSON {
		observability.NewPrinter(out).PrintStoredRun(run, records)
		return nil
	}

	enc := json.NewEncoder(out)
	for _, sr := range records {
		if err := enc.Encode(sr.Record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", sr.Position, err)
		}
	}
	return nil
}
