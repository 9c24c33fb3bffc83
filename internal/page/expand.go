package page

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonathan/profile-scraper/internal/session"
)

// Expansion defaults for profile pages.
const (
	DefaultShowMoreSelector = ".pv-profile-section__see-more-inline"
	DefaultContactSelector  = ".pv-top-card--list-bullet a"
	DefaultClickSettle      = 500 * time.Millisecond
	DefaultContactSettle    = time.Second
)

// ExpandOptions configures an Expander.
type ExpandOptions struct {
	ShowMoreSelector string
	ContactSelector  string
	// ClickSettle is slept after each "show more" click.
	ClickSettle time.Duration
	// ContactSettle is slept after opening the contact-info disclosure.
	ContactSettle time.Duration
	// Timeout bounds each individual driver call.
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultExpandOptions returns the expansion settings for profile pages.
func DefaultExpandOptions() ExpandOptions {
	return ExpandOptions{
		ShowMoreSelector: DefaultShowMoreSelector,
		ContactSelector:  DefaultContactSelector,
		ClickSettle:      DefaultClickSettle,
		ContactSettle:    DefaultContactSettle,
		Timeout:          DefaultTimeout,
	}
}

// Result counts what an expansion pass did.
type Result struct {
	Clicked int
	Skipped int
	Contact bool
}

// Expander reveals collapsed profile regions before extraction.
type Expander struct {
	opts ExpandOptions
}

// NewExpander returns an Expander. Empty selectors and timeout take their defaults.
func NewExpander(opts ExpandOptions) *Expander {
	d := DefaultExpandOptions()
	if opts.ShowMoreSelector == "" {
		opts.ShowMoreSelector = d.ShowMoreSelector
	}
	if opts.ContactSelector == "" {
		opts.ContactSelector = d.ContactSelector
	}
	if opts.Timeout <= 0 {
		opts.Timeout = d.Timeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Expander{opts: opts}
}

// Expand clicks every "show more" control and then the contact-info
// disclosure. It is best effort: controls that cannot be activated are
// skipped and nothing is reported as an error. Callers re-snapshot afterwards.
func (e *Expander) Expand(ctx context.Context, sess *session.Session) Result {
	var res Result
	if !sess.Valid() {
		return res
	}
	drv := sess.Driver()
	log := e.opts.Logger

	n, err := e.count(ctx, sess, e.opts.ShowMoreSelector)
	if err != nil {
		log.Debug("could not enumerate expandable sections", "error", err)
	}

	// Walk backwards so controls removed by a click do not shift the indices
	// still to visit.
	for i := n - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			res.Skipped += i + 1
			break
		}
		callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
		err := drv.ClickNth(callCtx, e.opts.ShowMoreSelector, i)
		cancel()
		if err != nil {
			sess.Observe(err)
			res.Skipped++
			log.Debug("skipped expandable section", "index", i, "error", err)
			continue
		}
		res.Clicked++
		_ = Sleep(ctx, e.opts.ClickSettle)
	}

	if ctx.Err() != nil {
		return res
	}
	if c, err := e.count(ctx, sess, e.opts.ContactSelector); err == nil && c > 0 {
		callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
		err := drv.ClickNth(callCtx, e.opts.ContactSelector, 0)
		cancel()
		if err != nil {
			sess.Observe(err)
			log.Debug("could not open contact info", "error", err)
		} else {
			res.Contact = true
			_ = Sleep(ctx, e.opts.ContactSettle)
		}
	}

	log.Debug("expanded sections", "clicked", res.Clicked, "skipped", res.Skipped, "contact", res.Contact)
	return res
}

func (e *Expander) count(ctx context.Context, sess *session.Session, selector string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()
	n, err := sess.Driver().Count(ctx, selector)
	sess.Observe(err)
	return n, err
}
