// Package page synchronizes with JavaScript-rendered profile pages: it waits
// for readiness, expands lazily loaded regions, and snapshots the result.
package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/profile-scraper/internal/dom"
	"github.com/jonathan/profile-scraper/internal/session"
	"github.com/jonathan/profile-scraper/internal/types"
)

// Readiness defaults for profile pages.
const (
	DefaultReadyMarker = ".pv-top-card"
	DefaultTimeout     = 10 * time.Second
	DefaultSettle      = 2 * time.Second
)

// Options configures a Synchronizer.
type Options struct {
	// ReadyMarker must match before the page is considered loaded.
	ReadyMarker string
	// Timeout bounds navigation plus the wait for ReadyMarker.
	Timeout time.Duration
	// Settle is slept after the marker appears so late scripts can render.
	Settle time.Duration
	Logger *slog.Logger
}

// DefaultOptions returns the readiness settings for profile pages.
func DefaultOptions() Options {
	return Options{
		ReadyMarker: DefaultReadyMarker,
		Timeout:     DefaultTimeout,
		Settle:      DefaultSettle,
	}
}

// Synchronizer turns a profile identifier into a parsed snapshot.
type Synchronizer struct {
	opts Options
}

// NewSynchronizer returns a Synchronizer. Zero-valued marker and timeout take
// their defaults; a zero settle means no settle delay.
func NewSynchronizer(opts Options) *Synchronizer {
	if opts.ReadyMarker == "" {
		opts.ReadyMarker = DefaultReadyMarker
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Synchronizer{opts: opts}
}

// AwaitReady navigates to id, waits for the readiness marker and the settle
// delay, and returns a snapshot. Every failure is a *LoadError.
func (s *Synchronizer) AwaitReady(ctx context.Context, sess *session.Session, id types.ProfileIdentifier) (*dom.Document, error) {
	url := id.URL()
	if url == "" {
		return nil, &LoadError{URL: id.String(), Cause: errors.New("empty identifier")}
	}
	if !sess.Valid() {
		return nil, &LoadError{URL: url, Cause: session.ErrSessionInvalid}
	}

	log := s.opts.Logger.With("url", url)
	start := time.Now()

	if err := s.navigate(ctx, sess, url); err != nil {
		sess.Observe(err)
		log.Debug("page not ready", "error", err, "elapsed", time.Since(start).Round(time.Millisecond))
		return nil, &LoadError{URL: url, Cause: err}
	}

	if err := Sleep(ctx, s.opts.Settle); err != nil {
		return nil, &LoadError{URL: url, Cause: err}
	}

	doc, err := s.Snapshot(ctx, sess)
	if err != nil {
		return nil, &LoadError{URL: url, Cause: err}
	}

	log.Debug("page ready", "bytes", doc.Len(), "elapsed", time.Since(start).Round(time.Millisecond))
	return doc, nil
}

func (s *Synchronizer) navigate(ctx context.Context, sess *session.Session, url string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	drv := sess.Driver()
	if err := drv.Navigate(ctx, url); err != nil {
		return err
	}
	return drv.WaitPresent(ctx, s.opts.ReadyMarker)
}

// Snapshot parses the current page without navigating.
func (s *Synchronizer) Snapshot(ctx context.Context, sess *session.Session) (*dom.Document, error) {
	if !sess.Valid() {
		return nil, session.ErrSessionInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	html, err := sess.Driver().HTML(ctx)
	if err != nil {
		sess.Observe(err)
		return nil, fmt.Errorf("failed to read page HTML: %w", err)
	}
	return dom.Parse(html)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
