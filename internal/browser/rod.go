package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const (
	rodCountJS    = `(sel) => document.querySelectorAll(sel).length`
	rodClickNthJS = `(sel, i) => {
	const els = document.querySelectorAll(sel);
	if (i >= els.length) return false;
	els[i].click();
	return true;
}`
)

// Rod is a Driver backed by go-rod with stealth evasions applied to the tab.
type Rod struct {
	lnch      *launcher.Launcher
	browser   *rod.Browser
	page      *rod.Page
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewRod launches Chrome via the rod launcher and opens a stealth tab.
func NewRod(ctx context.Context, opts Options) (*Rod, error) {
	opts.defaults()

	// The launcher context scopes the Chrome process, so it gets the
	// caller's long-lived context rather than a startup timeout.
	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-notifications").
		Set("disable-popup-blocking")
	if opts.ExecPath != "" {
		l = l.Bin(opts.ExecPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to chrome: %w", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to set user agent: %w", err)
	}
	_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  opts.WindowWidth,
		Height: opts.WindowHeight,
	})

	return &Rod{lnch: l, browser: b, page: page}, nil
}

func (r *Rod) check(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if r.closed.Load() {
		return ErrClosed
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (r *Rod) Navigate(ctx context.Context, url string) error {
	if r.closed.Load() {
		return opError("navigate", url, ErrClosed)
	}
	p := r.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return opError("navigate", url, r.check(ctx, err))
	}
	return opError("navigate", url, r.check(ctx, p.WaitLoad()))
}

func (r *Rod) WaitPresent(ctx context.Context, selector string) error {
	if r.closed.Load() {
		return opError("wait", selector, ErrClosed)
	}
	// Element retries until the selector matches or ctx ends.
	_, err := r.page.Context(ctx).Element(selector)
	return opError("wait", selector, r.check(ctx, err))
}

func (r *Rod) SetValue(ctx context.Context, selector, value string) error {
	if r.closed.Load() {
		return opError("type", selector, ErrClosed)
	}
	el, err := r.page.Context(ctx).Element(selector)
	if err != nil {
		return opError("type", selector, r.check(ctx, err))
	}
	return opError("type", selector, r.check(ctx, el.Input(value)))
}

func (r *Rod) Click(ctx context.Context, selector string) error {
	if r.closed.Load() {
		return opError("click", selector, ErrClosed)
	}
	el, err := r.page.Context(ctx).Element(selector)
	if err != nil {
		return opError("click", selector, r.check(ctx, err))
	}
	return opError("click", selector, r.check(ctx, el.Click(proto.InputMouseButtonLeft, 1)))
}

func (r *Rod) Count(ctx context.Context, selector string) (int, error) {
	if r.closed.Load() {
		return 0, opError("count", selector, ErrClosed)
	}
	res, err := r.page.Context(ctx).Eval(rodCountJS, selector)
	if err != nil {
		return 0, opError("count", selector, r.check(ctx, err))
	}
	return res.Value.Int(), nil
}

func (r *Rod) ClickNth(ctx context.Context, selector string, index int) error {
	if r.closed.Load() {
		return opError("click", selector, ErrClosed)
	}
	res, err := r.page.Context(ctx).Eval(rodClickNthJS, selector, index)
	if err != nil {
		return opError("click", selector, r.check(ctx, err))
	}
	if !res.Value.Bool() {
		return opError("click", selector, ErrNotFound)
	}
	return nil
}

func (r *Rod) HTML(ctx context.Context) (string, error) {
	if r.closed.Load() {
		return "", opError("snapshot", "", ErrClosed)
	}
	html, err := r.page.Context(ctx).HTML()
	if err != nil {
		return "", opError("snapshot", "", r.check(ctx, err))
	}
	return html, nil
}

func (r *Rod) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		err = r.browser.Close()
		r.lnch.Kill()
		r.lnch.Cleanup()
	})
	return err
}
