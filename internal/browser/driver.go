// Package browser drives a real Chrome instance for JavaScript-rendered pages.
// Callers program against Driver; chromedp and rod back it.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Driver is the small set of page operations the scraping pipeline needs.
// Every blocking call is bounded by ctx; implementations must return promptly
// once ctx is done.
type Driver interface {
	// Navigate loads url in the single active tab.
	Navigate(ctx context.Context, url string) error
	// WaitPresent blocks until selector matches at least one element.
	WaitPresent(ctx context.Context, selector string) error
	// SetValue types value into the first element matching selector.
	SetValue(ctx context.Context, selector, value string) error
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Count returns how many elements currently match selector.
	Count(ctx context.Context, selector string) (int, error)
	// ClickNth dispatches a script click on the index-th match of selector.
	ClickNth(ctx context.Context, selector string, index int) error
	// HTML returns the current outer HTML of the document.
	HTML(ctx context.Context) (string, error)
	// Close shuts the browser down. It is safe to call more than once.
	Close() error
}

// Kind selects a Driver implementation.
type Kind string

const (
	// KindChromedp drives Chrome over the DevTools protocol with chromedp.
	KindChromedp Kind = "chromedp"
	// KindRod drives Chrome with go-rod and the stealth evasion scripts.
	KindRod Kind = "rod"
)

// DefaultUserAgent is sent by both drivers unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Safari/537.36"

// Options configures browser launch.
type Options struct {
	Headless     bool
	ExecPath     string
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	// StartTimeout bounds the initial browser launch.
	StartTimeout time.Duration
}

// DefaultOptions returns sensible defaults for launching Chrome.
func DefaultOptions() Options {
	return Options{
		Headless:     true,
		UserAgent:    DefaultUserAgent,
		WindowWidth:  1920,
		WindowHeight: 1080,
		StartTimeout: 30 * time.Second,
	}
}

func (o *Options) defaults() {
	d := DefaultOptions()
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	if o.WindowWidth <= 0 {
		o.WindowWidth = d.WindowWidth
	}
	if o.WindowHeight <= 0 {
		o.WindowHeight = d.WindowHeight
	}
	if o.StartTimeout <= 0 {
		o.StartTimeout = d.StartTimeout
	}
}

// ParseKind maps a configuration string to a Kind. Empty selects chromedp.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindChromedp:
		return KindChromedp, nil
	case KindRod:
		return KindRod, nil
	default:
		return "", fmt.Errorf("unknown browser driver %q (want %q or %q)", s, KindChromedp, KindRod)
	}
}

// New launches a browser of the requested kind.
func New(ctx context.Context, kind Kind, opts Options) (Driver, error) {
	switch kind {
	case KindChromedp, "":
		return NewChromedp(ctx, opts)
	case KindRod:
		return NewRod(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown browser driver %q", kind)
	}
}

// clickNthScript returns a script that clicks the index-th match of selector
// and evaluates to whether an element was found.
func clickNthScript(selector string, index int) string {
	return fmt.Sprintf(`(() => {
	const els = document.querySelectorAll(%q);
	if (%d >= els.length) return false;
	els[%d].click();
	return true;
})()`, selector, index, index)
}

// countScript returns a script evaluating to the number of matches of selector.
func countScript(selector string) string {
	return fmt.Sprintf(`document.querySelectorAll(%q).length`, selector)
}
