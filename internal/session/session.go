// Package session owns the single authenticated browsing context of a run.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonathan/profile-scraper/internal/browser"
	"github.com/jonathan/profile-scraper/internal/config"
)

// Login surface defaults.
const (
	DefaultLoginURL         = "https://www.linkedin.com/login"
	DefaultUsernameSelector = "#username"
	DefaultPasswordSelector = "#password"
	DefaultSubmitSelector   = "button[type='submit']"
	DefaultLoginMarker      = ".feed-identity-module"
	DefaultTimeout          = 10 * time.Second
)

// Session is an authenticated browsing context. It is created once per run
// by a Manager and handed explicitly to every pipeline stage.
type Session struct {
	mu      sync.Mutex
	driver  browser.Driver
	created time.Time
	valid   bool
}

// New wraps a driver that is already authenticated. Manager is the normal
// way to get a Session; New exists for callers that log in some other way.
func New(driver browser.Driver) *Session {
	return &Session{driver: driver, created: time.Now(), valid: true}
}

// Valid reports whether the session can still be used.
func (s *Session) Valid() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valid
}

// Driver returns the browser behind the session.
func (s *Session) Driver() browser.Driver {
	return s.driver
}

// Invalidate marks the session unusable. It cannot be revived.
func (s *Session) Invalidate() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = false
}

// Observe invalidates the session when err shows the browser is gone.
func (s *Session) Observe(err error) {
	if errors.Is(err, browser.ErrClosed) {
		s.Invalidate()
	}
}

// Options configures the login flow.
type Options struct {
	LoginURL         string
	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string
	LoginMarker      string
	// Timeout bounds each step of the login, including the wait for LoginMarker.
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultOptions returns the login flow for the public sign-in page.
func DefaultOptions() Options {
	return Options{
		LoginURL:         DefaultLoginURL,
		UsernameSelector: DefaultUsernameSelector,
		PasswordSelector: DefaultPasswordSelector,
		SubmitSelector:   DefaultSubmitSelector,
		LoginMarker:      DefaultLoginMarker,
		Timeout:          DefaultTimeout,
	}
}

func (o *Options) defaults() {
	d := DefaultOptions()
	if o.LoginURL == "" {
		o.LoginURL = d.LoginURL
	}
	if o.UsernameSelector == "" {
		o.UsernameSelector = d.UsernameSelector
	}
	if o.PasswordSelector == "" {
		o.PasswordSelector = d.PasswordSelector
	}
	if o.SubmitSelector == "" {
		o.SubmitSelector = d.SubmitSelector
	}
	if o.LoginMarker == "" {
		o.LoginMarker = d.LoginMarker
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Manager establishes the session once and owns the browser's lifetime.
type Manager struct {
	driver browser.Driver
	creds  config.Credentials
	opts   Options

	mu        sync.Mutex
	attempted bool
	session   *Session
	err       error

	closeOnce sync.Once
	closeErr  error
}

// NewManager returns a Manager that will log in through driver.
func NewManager(driver browser.Driver, creds config.Credentials, opts Options) *Manager {
	opts.defaults()
	return &Manager{driver: driver, creds: creds, opts: opts}
}

// Establish logs in. Only the first call does any work; later calls return
// the same session or the same error.
func (m *Manager) Establish(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.attempted {
		return m.session, m.err
	}
	m.attempted = true
	m.session, m.err = m.login(ctx)
	return m.session, m.err
}

// Session returns the established session, logging in first if no attempt
// has been made. It never re-authenticates.
func (m *Manager) Session(ctx context.Context) (*Session, error) {
	sess, err := m.Establish(ctx)
	if err != nil {
		return nil, err
	}
	if !sess.Valid() {
		return nil, ErrSessionInvalid
	}
	return sess, nil
}

// Close invalidates the session and shuts the browser down. Safe to call
// more than once; only the first call reaches the driver.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		sess := m.session
		m.mu.Unlock()

		sess.Invalidate()
		m.closeErr = m.driver.Close()
		m.opts.Logger.Debug("browser closed", "session", sess)
	})
	return m.closeErr
}

func (m *Manager) login(ctx context.Context) (*Session, error) {
	if err := m.creds.Validate(); err != nil {
		return nil, err
	}

	log := m.opts.Logger
	log.Info("logging in", "url", m.opts.LoginURL, "credentials", m.creds)
	start := time.Now()

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"open login page", func(ctx context.Context) error {
			return m.driver.Navigate(ctx, m.opts.LoginURL)
		}},
		{"wait for login form", func(ctx context.Context) error {
			return m.driver.WaitPresent(ctx, m.opts.UsernameSelector)
		}},
		{"enter username", func(ctx context.Context) error {
			return m.driver.SetValue(ctx, m.opts.UsernameSelector, m.creds.Email)
		}},
		{"enter password", func(ctx context.Context) error {
			return m.driver.SetValue(ctx, m.opts.PasswordSelector, m.creds.Password)
		}},
		{"submit", func(ctx context.Context) error {
			return m.driver.Click(ctx, m.opts.SubmitSelector)
		}},
		{"wait for login marker", func(ctx context.Context) error {
			return m.driver.WaitPresent(ctx, m.opts.LoginMarker)
		}},
	}

	for _, step := range steps {
		stepCtx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
		err := step.run(stepCtx)
		cancel()
		if err != nil {
			log.Error("login failed", "step", step.name, "error", err)
			return nil, &AuthError{Step: step.name, Cause: err}
		}
	}

	log.Info("logged in", "duration", time.Since(start).Round(time.Millisecond))
	return New(m.driver), nil
}

// String describes the session for logs.
func (s *Session) String() string {
	if s == nil {
		return "session(nil)"
	}
	return fmt.Sprintf("session(created=%s valid=%t)", s.created.Format(time.RFC3339), s.Valid())
}
