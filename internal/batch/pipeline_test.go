package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/profile-scraper/internal/browser/browsertest"
	"github.com/jonathan/profile-scraper/internal/config"
	"github.com/jonathan/profile-scraper/internal/page"
	"github.com/jonathan/profile-scraper/internal/scrape"
	"github.com/jonathan/profile-scraper/internal/session"
	"github.com/jonathan/profile-scraper/internal/types"
)

const loginForm = `<form><input id="username"><input id="password"><button type="submit">Sign in</button></form>`

const feed = `<div class="feed-identity-module"></div>`

const readyProfile = `<section class="pv-top-card">
<h1 class="text-heading-xlarge">Bo</h1><div class="text-body-medium">Builder</div>
</section>
<section id="projects-section"><ul>
<li class="pv-accomplishment-entity"><h3 class="pv-accomplishment-entity__title">Shed</h3></li>
</ul></section>`

func newPipeline(t *testing.T, pages map[string]*browsertest.Page) (*browsertest.Driver, *session.Manager, *scrape.Scraper) {
	t.Helper()
	pages[session.DefaultLoginURL] = &browsertest.Page{
		HTML:   loginForm,
		Clicks: map[string]string{session.DefaultSubmitSelector: feed},
	}
	drv := browsertest.New(pages)
	log := quietLogger()

	sessOpts := session.DefaultOptions()
	sessOpts.Timeout = 50 * time.Millisecond
	sessOpts.Logger = log
	mgr := session.NewManager(drv, config.Credentials{Email: "e@example.com", Password: "pw"}, sessOpts)

	s := scrape.New(mgr, scrape.Options{
		Sync:     page.NewSynchronizer(page.Options{Timeout: 30 * time.Millisecond, Logger: log}),
		Expander: page.NewExpander(page.ExpandOptions{Timeout: 30 * time.Millisecond, Logger: log}),
		Logger:   log,
	})
	return drv, mgr, s
}

func TestPipeline_TimeoutThenSuccess(t *testing.T) {
	drv, mgr, s := newPipeline(t, map[string]*browsertest.Page{
		"https://www.linkedin.com/in/A/": {HTML: `<div class="spinner"></div>`},
		"https://www.linkedin.com/in/B/": {HTML: readyProfile},
	})
	sink := &memorySink{}

	summary, err := NewRunner(mgr, s, sink, Options{Logger: quietLogger()}).Run(context.Background(), ids("A", "B"))
	require.NoError(t, err)

	require.Len(t, sink.records, 2)
	assert.Equal(t, types.NewProfileRecord("A"), sink.records[0])
	assert.Equal(t, "Bo", sink.records[1].Name)
	assert.Equal(t, "Builder", sink.records[1].Bio)
	assert.Equal(t, map[string]string{"Shed": ""}, sink.records[1].Projects)
	assert.Equal(t, 1, summary.Empty)
	assert.Equal(t, 1, summary.Populated)
	assert.Equal(t, 1, drv.CloseCount())
}

func TestPipeline_CrashedPageIsIsolated(t *testing.T) {
	drv, mgr, s := newPipeline(t, map[string]*browsertest.Page{
		"https://www.linkedin.com/in/crash/": {Panic: true},
		"https://www.linkedin.com/in/B/":     {HTML: readyProfile},
	})
	sink := &memorySink{}

	summary, err := NewRunner(mgr, s, sink, Options{Logger: quietLogger()}).Run(context.Background(), ids("crash", "B"))
	require.NoError(t, err)

	require.Len(t, sink.records, 2)
	assert.Equal(t, types.NewProfileRecord("crash"), sink.records[0])
	assert.Equal(t, "Bo", sink.records[1].Name)
	assert.Equal(t, 1, summary.Faults)
	assert.Equal(t, 1, drv.CloseCount())
}

func TestPipeline_LostBrowserFailsRemainingIndividually(t *testing.T) {
	drv, mgr, s := newPipeline(t, map[string]*browsertest.Page{
		"https://www.linkedin.com/in/B/": {HTML: readyProfile},
	})
	sink := &memorySink{}

	r := NewRunner(mgr, s, sink, Options{
		Logger: quietLogger(),
		OnProgress: func(e ProgressEvent) {
			if e.Position == 1 {
				drv.Crash()
			}
		},
	})

	summary, err := r.Run(context.Background(), ids("B", "B", "B"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "B", "B"}, sources(sink.records))
	assert.Equal(t, "Bo", sink.records[0].Name)
	assert.True(t, sink.records[1].IsEmpty())
	assert.True(t, sink.records[2].IsEmpty())
	assert.Equal(t, 2, summary.Empty)
	assert.Equal(t, 1, drv.CloseCount())
}

func TestPipeline_RejectedLogin(t *testing.T) {
	drv := browsertest.New(map[string]*browsertest.Page{
		session.DefaultLoginURL: {HTML: loginForm},
	})
	opts := session.DefaultOptions()
	opts.Timeout = 20 * time.Millisecond
	opts.Logger = quietLogger()
	mgr := session.NewManager(drv, config.Credentials{Email: "e@example.com", Password: "wrong"}, opts)
	sink := &memorySink{}

	_, err := NewRunner(mgr, scrape.New(mgr, scrape.Options{Logger: quietLogger()}), sink, Options{Logger: quietLogger()}).
		Run(context.Background(), ids("A"))
	assert.ErrorIs(t, err, session.ErrAuthTimeout)
	assert.Empty(t, sink.records)
	assert.Equal(t, 1, drv.CloseCount())
}
