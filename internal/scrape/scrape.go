// Package scrape turns one profile identifier into one ProfileRecord.
package scrape

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonathan/profile-scraper/internal/dom"
	"github.com/jonathan/profile-scraper/internal/extract"
	"github.com/jonathan/profile-scraper/internal/page"
	"github.com/jonathan/profile-scraper/internal/session"
	"github.com/jonathan/profile-scraper/internal/types"
)

// SessionSource hands out the run's session. *session.Manager implements it.
type SessionSource interface {
	Session(ctx context.Context) (*session.Session, error)
}

// Options configures a Scraper. Nil components take their defaults.
type Options struct {
	Sync      *page.Synchronizer
	Expander  *page.Expander
	Extractor *extract.Extractor
	Logger    *slog.Logger
}

// Scraper runs synchronize, expand, re-snapshot and extract for one profile.
type Scraper struct {
	sessions SessionSource
	sync     *page.Synchronizer
	expander *page.Expander
	extract  *extract.Extractor
	logger   *slog.Logger
}

// New returns a Scraper drawing its session from sessions.
func New(sessions SessionSource, opts Options) *Scraper {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Sync == nil {
		opts.Sync = page.NewSynchronizer(page.Options{Settle: page.DefaultSettle, Logger: opts.Logger})
	}
	if opts.Expander == nil {
		opts.Expander = page.NewExpander(page.ExpandOptions{
			ClickSettle:   page.DefaultClickSettle,
			ContactSettle: page.DefaultContactSettle,
			Logger:        opts.Logger,
		})
	}
	if opts.Extractor == nil {
		opts.Extractor = extract.Default()
	}
	return &Scraper{
		sessions: sessions,
		sync:     opts.Sync,
		expander: opts.Expander,
		extract:  opts.Extractor,
		logger:   opts.Logger,
	}
}

// ExtractOne never fails. When the session is unavailable or the page never
// becomes ready it returns the identifier-only record; otherwise every field
// that could be read is filled in.
func (s *Scraper) ExtractOne(ctx context.Context, id types.ProfileIdentifier) types.ProfileRecord {
	log := s.logger.With("profile", id.String())
	start := time.Now()

	sess, err := s.sessions.Session(ctx)
	if err != nil {
		log.Error("no session available", "error", err)
		return types.NewProfileRecord(id)
	}

	doc, err := s.sync.AwaitReady(ctx, sess, id)
	if err != nil {
		log.Error("profile did not load", "error", err)
		return types.NewProfileRecord(id)
	}

	res := s.expander.Expand(ctx, sess)
	if expanded, err := s.sync.Snapshot(ctx, sess); err != nil {
		log.Warn("re-snapshot failed, using pre-expansion page", "error", err)
	} else {
		doc = expanded
	}

	rec := assemble(log, s.extract, id, doc)
	log.Info("profile extracted",
		"fields", rec.PopulatedFields(),
		"expanded", res.Clicked,
		"skipped", res.Skipped,
		"duration", time.Since(start).Round(time.Millisecond))
	return rec
}

// Assemble runs only the extraction stage, for snapshots obtained elsewhere.
func Assemble(id types.ProfileIdentifier, doc dom.Node, ex *extract.Extractor, logger *slog.Logger) types.ProfileRecord {
	if ex == nil {
		ex = extract.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return assemble(logger.With("profile", id.String()), ex, id, doc)
}

func assemble(log *slog.Logger, ex *extract.Extractor, id types.ProfileIdentifier, doc dom.Node) types.ProfileRecord {
	rec := types.NewProfileRecord(id)
	outcomes := ex.Run(doc)
	for _, o := range outcomes {
		if o.Gap() {
			log.Warn("no data found", "field", o.Field, "reason", o.Err)
		}
	}
	extract.ApplyTo(&rec, outcomes)
	return rec
}
