package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
)

// Chromedp is a Driver backed by chromedp. Requires Chrome/Chromium to be
// installed on the system.
type Chromedp struct {
	ctx         context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
	closeOnce   sync.Once
}

// NewChromedp launches Chrome and opens a single tab.
// parent scopes the browser process: cancelling it kills Chrome.
func NewChromedp(parent context.Context, opts Options) (*Chromedp, error) {
	opts.defaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	d := &Chromedp{ctx: tabCtx, cancelAlloc: cancelAlloc, cancelTab: cancelTab}

	// The first Run allocates the browser. It must use the long-lived tab
	// context, not a timeout child, or Chrome dies with the child.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx, chromedp.Navigate("about:blank")) }()

	startCtx, cancel := context.WithTimeout(parent, opts.StartTimeout)
	defer cancel()

	select {
	case err := <-started:
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("failed to start chrome: %w", err)
		}
	case <-startCtx.Done():
		_ = d.Close()
		return nil, fmt.Errorf("failed to start chrome: %w", startCtx.Err())
	}

	return d, nil
}

// run executes actions on the tab, bounded by ctx.
func (d *Chromedp) run(ctx context.Context, actions ...chromedp.Action) error {
	if d.ctx.Err() != nil {
		return ErrClosed
	}

	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if d.ctx.Err() != nil {
		return ErrClosed
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (d *Chromedp) Navigate(ctx context.Context, url string) error {
	return opError("navigate", url, d.run(ctx, chromedp.Navigate(url)))
}

func (d *Chromedp) WaitPresent(ctx context.Context, selector string) error {
	return opError("wait", selector, d.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery)))
}

func (d *Chromedp) SetValue(ctx context.Context, selector, value string) error {
	return opError("type", selector, d.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	))
}

func (d *Chromedp) Click(ctx context.Context, selector string) error {
	return opError("click", selector, d.run(ctx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
	))
}

func (d *Chromedp) Count(ctx context.Context, selector string) (int, error) {
	var n int
	if err := d.run(ctx, chromedp.Evaluate(countScript(selector), &n)); err != nil {
		return 0, opError("count", selector, err)
	}
	return n, nil
}

func (d *Chromedp) ClickNth(ctx context.Context, selector string, index int) error {
	var clicked bool
	if err := d.run(ctx, chromedp.Evaluate(clickNthScript(selector, index), &clicked)); err != nil {
		return opError("click", selector, err)
	}
	if !clicked {
		return opError("click", selector, ErrNotFound)
	}
	return nil
}

func (d *Chromedp) HTML(ctx context.Context) (string, error) {
	var html string
	if err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", opError("snapshot", "", err)
	}
	return html, nil
}

func (d *Chromedp) Close() error {
	d.closeOnce.Do(func() {
		d.cancelTab()
		d.cancelAlloc()
	})
	return nil
}
