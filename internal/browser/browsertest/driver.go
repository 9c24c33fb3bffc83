// Package browsertest provides an in-memory browser.Driver for tests.
// Pages are plain HTML; selector queries are answered by parsing the current
// page with goquery, so readiness markers and clickable controls behave like
// they would in a real browser.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/profile-scraper/internal/browser"
)

// Page is one addressable document.
type Page struct {
	HTML string
	// Clicks maps a selector to the HTML the page turns into once an element
	// matching it is clicked.
	Clicks map[string]string
	// NavigateErr, when set, is returned by Navigate for this URL.
	NavigateErr error
	// Panic makes Navigate panic, simulating a crashed browsing context.
	Panic bool
}

// Driver is a scripted browser.Driver. The zero value is not usable; use New.
type Driver struct {
	mu      sync.Mutex
	pages   map[string]*Page
	current *Page
	html    string
	values  map[string]string
	calls   []string
	closes  int
	closed  bool
}

var _ browser.Driver = (*Driver)(nil)

// New returns a driver serving pages keyed by URL.
func New(pages map[string]*Page) *Driver {
	if pages == nil {
		pages = map[string]*Page{}
	}
	return &Driver{pages: pages, values: map[string]string{}}
}

// AddPage registers or replaces the page served at url.
func (d *Driver) AddPage(url string, p *Page) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[url] = p
}

// Crash marks the browser as gone; subsequent calls return browser.ErrClosed.
func (d *Driver) Crash() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

// Calls returns the operations performed so far, e.g. "navigate https://…".
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// Value returns what was typed into selector.
func (d *Driver) Value(selector string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.values[selector]
}

// CloseCount reports how many times Close was called.
func (d *Driver) CloseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

func (d *Driver) record(format string, args ...any) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *Driver) matches(selector string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(d.html))
	if err != nil {
		return 0
	}
	return doc.Find(selector).Length()
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("navigate %s", url)

	if d.closed {
		return browser.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p, ok := d.pages[url]
	if !ok {
		return fmt.Errorf("no page registered for %s", url)
	}
	if p.Panic {
		panic("browsertest: simulated crash navigating to " + url)
	}
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	d.current = p
	d.html = p.HTML
	return nil
}

// WaitPresent returns immediately when selector matches, otherwise blocks
// until ctx is done. Pages never change on their own.
func (d *Driver) WaitPresent(ctx context.Context, selector string) error {
	d.mu.Lock()
	d.record("wait %s", selector)
	closed := d.closed
	found := d.matches(selector) > 0
	d.mu.Unlock()

	if closed {
		return browser.ErrClosed
	}
	if found {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (d *Driver) SetValue(_ context.Context, selector, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("type %s", selector)

	if d.closed {
		return browser.ErrClosed
	}
	if d.matches(selector) == 0 {
		return browser.ErrNotFound
	}
	d.values[selector] = value
	return nil
}

func (d *Driver) click(selector string) error {
	if d.closed {
		return browser.ErrClosed
	}
	if d.matches(selector) == 0 {
		return browser.ErrNotFound
	}
	if d.current != nil {
		if next, ok := d.current.Clicks[selector]; ok {
			d.html = next
		}
	}
	return nil
}

func (d *Driver) Click(_ context.Context, selector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("click %s", selector)
	return d.click(selector)
}

func (d *Driver) Count(_ context.Context, selector string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("count %s", selector)

	if d.closed {
		return 0, browser.ErrClosed
	}
	return d.matches(selector), nil
}

func (d *Driver) ClickNth(_ context.Context, selector string, index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("click %s #%d", selector, index)

	if d.closed {
		return browser.ErrClosed
	}
	if index >= d.matches(selector) {
		return browser.ErrNotFound
	}
	return d.click(selector)
}

func (d *Driver) HTML(_ context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("snapshot")

	if d.closed {
		return "", browser.ErrClosed
	}
	return d.html, nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	d.closed = true
	return nil
}
