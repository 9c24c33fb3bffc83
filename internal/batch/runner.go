// Package batch runs the profile pipeline over an ordered list of identifiers.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/profile-scraper/internal/page"
	"github.com/jonathan/profile-scraper/internal/session"
	"github.com/jonathan/profile-scraper/internal/types"
)

// DefaultDelay is the pause between the end of one profile and the start of the next.
const DefaultDelay = 3 * time.Second

// Sessions establishes and releases the run's session. *session.Manager implements it.
type Sessions interface {
	Establish(ctx context.Context) (*session.Session, error)
	Close() error
}

// Extractor produces one record per identifier. *scrape.Scraper implements it.
type Extractor interface {
	ExtractOne(ctx context.Context, id types.ProfileIdentifier) types.ProfileRecord
}

// Sink accepts records one at a time, in input order.
type Sink interface {
	Write(ctx context.Context, rec types.ProfileRecord) error
}

// ProgressEvent reports one finished identifier.
type ProgressEvent struct {
	RunID      string
	Position   int // 1-based
	Total      int
	Identifier types.ProfileIdentifier
	Record     types.ProfileRecord
	Err        error
}

// ProgressCallback is called after each record is handed to the sink.
type ProgressCallback func(event ProgressEvent)

// Options configures a Runner.
type Options struct {
	// RunID tags logs and stored records. A random UUID is used when empty.
	RunID string
	// Delay spaces consecutive identifiers; zero disables pacing.
	Delay      time.Duration
	Logger     *slog.Logger
	OnProgress ProgressCallback
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Started    time.Time
	Finished   time.Time
	Total      int
	Emitted    int
	Populated  int
	Empty      int
	Faults     int
	SinkErrors int
	Cancelled  bool
}

// Duration returns the wall-clock time of the run.
func (s Summary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}

// Runner drives the per-profile pipeline sequentially.
type Runner struct {
	sessions Sessions
	scraper  Extractor
	sink     Sink
	opts     Options
}

// NewRunner returns a Runner.
func NewRunner(sessions Sessions, scraper Extractor, sink Sink, opts Options) *Runner {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{sessions: sessions, scraper: scraper, sink: sink, opts: opts}
}

// RunID returns the identifier of this run.
func (r *Runner) RunID() string {
	return r.opts.RunID
}

// Run establishes the session once, then hands exactly one record per
// identifier to the sink, in order. The session is closed on every exit
// path. A login failure aborts before any identifier is processed; a
// cancelled ctx stops the loop between identifiers.
func (r *Runner) Run(ctx context.Context, ids []types.ProfileIdentifier) (summary Summary, err error) {
	log := r.opts.Logger.With("run_id", r.opts.RunID)
	summary = Summary{RunID: r.opts.RunID, Started: time.Now(), Total: len(ids)}

	defer func() {
		if cerr := r.sessions.Close(); cerr != nil {
			log.Warn("failed to close browser", "error", cerr)
		}
		summary.Finished = time.Now()
	}()

	log.Info("starting run", "profiles", len(ids), "delay", r.opts.Delay)

	if _, err := r.sessions.Establish(ctx); err != nil {
		log.Error("login failed, aborting run", "error", err)
		return summary, fmt.Errorf("failed to establish session: %w", err)
	}

	for i, id := range ids {
		if err := r.pause(ctx, i); err != nil {
			summary.Cancelled = true
			log.Warn("run cancelled", "processed", summary.Emitted, "remaining", len(ids)-i)
			return summary, fmt.Errorf("run cancelled: %w", err)
		}

		rec, fault := r.extractOne(ctx, id)
		if fault != nil {
			summary.Faults++
			log.Error("unexpected fault", "profile", id.String(), "error", fault)
		}
		if rec.IsEmpty() {
			summary.Empty++
		} else {
			summary.Populated++
		}

		if err := r.sink.Write(ctx, rec); err != nil {
			summary.SinkErrors++
			log.Error("failed to write record", "profile", id.String(), "error", err)
		}
		summary.Emitted++

		if r.opts.OnProgress != nil {
			r.opts.OnProgress(ProgressEvent{
				RunID:      r.opts.RunID,
				Position:   i + 1,
				Total:      len(ids),
				Identifier: id,
				Record:     rec,
				Err:        fault,
			})
		}
	}

	log.Info("run finished",
		"emitted", summary.Emitted,
		"populated", summary.Populated,
		"empty", summary.Empty,
		"faults", summary.Faults,
		"sink_errors", summary.SinkErrors)
	return summary, nil
}

// pause sleeps Delay before every identifier but the first, so the gap is
// measured from the end of the previous profile. It returns ctx's error as
// soon as ctx is done.
func (r *Runner) pause(ctx context.Context, i int) error {
	if i == 0 {
		return ctx.Err()
	}
	return page.Sleep(ctx, r.opts.Delay)
}

// extractOne is the fault boundary: anything escaping the scraper, panics
// included, becomes an identifier-only record.
func (r *Runner) extractOne(ctx context.Context, id types.ProfileIdentifier) (rec types.ProfileRecord, err error) {
	defer func() {
		if p := recover(); p != nil {
			rec = types.NewProfileRecord(id)
			err = &FaultError{Identifier: id.String(), Cause: fmt.Errorf("panic: %v", p)}
		}
	}()
	rec = r.scraper.ExtractOne(ctx, id)
	rec.Source = id.String()
	rec.Normalize()
	return rec, nil
}
