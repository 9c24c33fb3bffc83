package batch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/profile-scraper/internal/session"
	"github.com/jonathan/profile-scraper/internal/types"
)

type fakeSessions struct {
	mu         sync.Mutex
	err        error
	establish  int
	closeCount int
}

func (f *fakeSessions) Establish(context.Context) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.establish++
	if f.err != nil {
		return nil, f.err
	}
	return session.New(nil), nil
}

func (f *fakeSessions) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCount++
	return nil
}

// nameExtractor fills Name with the identifier, panics on "panic" and
// returns an empty record for "empty".
type nameExtractor struct {
	calls []types.ProfileIdentifier
}

func (n *nameExtractor) ExtractOne(_ context.Context, id types.ProfileIdentifier) types.ProfileRecord {
	n.calls = append(n.calls, id)
	switch id {
	case "panic":
		panic("browsing context crashed")
	case "empty":
		return types.NewProfileRecord(id)
	}
	rec := types.NewProfileRecord(id)
	rec.Name = "name of " + id.String()
	return rec
}

type memorySink struct {
	records []types.ProfileRecord
	failOn  string
}

func (m *memorySink) Write(_ context.Context, rec types.ProfileRecord) error {
	m.records = append(m.records, rec)
	if rec.Source == m.failOn {
		return errors.New("disk full")
	}
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ids(raw ...string) []types.ProfileIdentifier {
	out := make([]types.ProfileIdentifier, len(raw))
	for i, r := range raw {
		out[i] = types.ProfileIdentifier(r)
	}
	return out
}

func sources(records []types.ProfileRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Source
	}
	return out
}

func TestRun_OneRecordPerIdentifierInOrder(t *testing.T) {
	sessions := &fakeSessions{}
	sink := &memorySink{}
	r := NewRunner(sessions, &nameExtractor{}, sink, Options{Logger: quietLogger()})

	summary, err := r.Run(context.Background(), ids("c", "a", "b", "a"))
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "a", "b", "a"}, sources(sink.records))
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 4, summary.Emitted)
	assert.Equal(t, 4, summary.Populated)
	assert.False(t, summary.Cancelled)
	assert.Equal(t, 1, sessions.establish)
	assert.Equal(t, 1, sessions.closeCount)
	assert.False(t, summary.Finished.Before(summary.Started))
}

func TestRun_EmptyInput(t *testing.T) {
	sessions := &fakeSessions{}
	sink := &memorySink{}
	r := NewRunner(sessions, &nameExtractor{}, sink, Options{Logger: quietLogger()})

	summary, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, sink.records)
	assert.Equal(t, 0, summary.Emitted)
	assert.Equal(t, 1, sessions.closeCount)
}

func TestRun_AuthFailureAborts(t *testing.T) {
	sessions := &fakeSessions{err: session.ErrAuthTimeout}
	ex := &nameExtractor{}
	sink := &memorySink{}
	r := NewRunner(sessions, ex, sink, Options{Logger: quietLogger()})

	summary, err := r.Run(context.Background(), ids("a", "b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrAuthTimeout)
	assert.Empty(t, ex.calls)
	assert.Empty(t, sink.records)
	assert.Equal(t, 0, summary.Emitted)
	assert.Equal(t, 1, sessions.closeCount, "browser released even when login fails")
}

func TestRun_PanicBecomesIdentifierOnlyRecord(t *testing.T) {
	sessions := &fakeSessions{}
	sink := &memorySink{}
	var events []ProgressEvent
	r := NewRunner(sessions, &nameExtractor{}, sink, Options{
		Logger:     quietLogger(),
		OnProgress: func(e ProgressEvent) { events = append(events, e) },
	})

	summary, err := r.Run(context.Background(), ids("a", "panic", "b"))
	require.NoError(t, err)

	require.Len(t, sink.records, 3)
	assert.Equal(t, types.NewProfileRecord("panic"), sink.records[1])
	assert.Equal(t, "name of b", sink.records[2].Name)
	assert.Equal(t, 1, summary.Faults)
	assert.Equal(t, 1, summary.Empty)
	assert.Equal(t, 2, summary.Populated)

	require.Len(t, events, 3)
	assert.ErrorIs(t, events[1].Err, ErrUnexpectedFault)
	assert.Contains(t, events[1].Err.Error(), "browsing context crashed")
	assert.Equal(t, 2, events[1].Position)
	assert.Equal(t, 3, events[1].Total)
	assert.NoError(t, events[2].Err)
}

func TestRun_SinkErrorDoesNotStopBatch(t *testing.T) {
	sink := &memorySink{failOn: "a"}
	r := NewRunner(&fakeSessions{}, &nameExtractor{}, sink, Options{Logger: quietLogger()})

	summary, err := r.Run(context.Background(), ids("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SinkErrors)
	assert.Equal(t, 2, summary.Emitted)
	assert.Equal(t, []string{"a", "b"}, sources(sink.records))
}

func TestRun_CancelStopsBetweenIdentifiers(t *testing.T) {
	sessions := &fakeSessions{}
	sink := &memorySink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRunner(sessions, &nameExtractor{}, sink, Options{
		Logger: quietLogger(),
		OnProgress: func(e ProgressEvent) {
			if e.Position == 2 {
				cancel()
			}
		},
	})

	summary, err := r.Run(ctx, ids("a", "b", "c", "d"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, summary.Cancelled)
	assert.Equal(t, 2, summary.Emitted)
	assert.Equal(t, []string{"a", "b"}, sources(sink.records))
	assert.Equal(t, 1, sessions.closeCount)
}

// slowExtractor takes work to extract each profile and records when each
// extraction started and finished.
type slowExtractor struct {
	work   time.Duration
	starts []time.Time
	ends   []time.Time
}

func (s *slowExtractor) ExtractOne(_ context.Context, id types.ProfileIdentifier) types.ProfileRecord {
	s.starts = append(s.starts, time.Now())
	time.Sleep(s.work)
	s.ends = append(s.ends, time.Now())
	return types.NewProfileRecord(id)
}

func TestRun_PausesBetweenSlowProfiles(t *testing.T) {
	delay := 50 * time.Millisecond
	ex := &slowExtractor{work: 60 * time.Millisecond}
	r := NewRunner(&fakeSessions{}, ex, &memorySink{}, Options{Delay: delay, Logger: quietLogger()})

	begin := time.Now()
	_, err := r.Run(context.Background(), ids("a", "b", "c"))
	require.NoError(t, err)

	require.Len(t, ex.starts, 3)
	assert.Less(t, ex.starts[0].Sub(begin), delay, "first identifier is not delayed")
	for i := 1; i < len(ex.starts); i++ {
		gap := ex.starts[i].Sub(ex.ends[i-1])
		assert.GreaterOrEqual(t, gap, delay, "gap between end of %d and start of %d", i-1, i)
	}
}

func TestRun_ZeroDelayDoesNotPause(t *testing.T) {
	ex := &slowExtractor{}
	r := NewRunner(&fakeSessions{}, ex, &memorySink{}, Options{Logger: quietLogger()})

	_, err := r.Run(context.Background(), ids("a", "b"))
	require.NoError(t, err)

	require.Len(t, ex.starts, 2)
	assert.Less(t, ex.starts[1].Sub(ex.ends[0]), 20*time.Millisecond)
}

func TestRun_CancelDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := &fakeSessions{}
	sink := &memorySink{}
	r := NewRunner(sessions, &nameExtractor{}, sink, Options{
		Delay:      time.Minute,
		Logger:     quietLogger(),
		OnProgress: func(ProgressEvent) { cancel() },
	})

	begin := time.Now()
	summary, err := r.Run(ctx, ids("a", "b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, summary.Cancelled)
	assert.Equal(t, []string{"a"}, sources(sink.records))
	assert.Less(t, time.Since(begin), time.Second, "pause ends as soon as the run is cancelled")
	assert.Equal(t, 1, sessions.closeCount)
}

func TestRun_RunID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := NewRunner(&fakeSessions{}, &nameExtractor{}, &memorySink{}, Options{Logger: logger})
	_, err := uuid.Parse(r.RunID())
	require.NoError(t, err)

	summary, err := r.Run(context.Background(), ids("a"))
	require.NoError(t, err)
	assert.Equal(t, r.RunID(), summary.RunID)
	assert.Contains(t, buf.String(), "run_id="+r.RunID())

	custom := NewRunner(&fakeSessions{}, &nameExtractor{}, &memorySink{}, Options{RunID: "nightly-1", Logger: quietLogger()})
	assert.Equal(t, "nightly-1", custom.RunID())
}

func TestRun_SourceAlwaysMatchesIdentifier(t *testing.T) {
	sink := &memorySink{}
	r := NewRunner(&fakeSessions{}, sourceRewriter{}, sink, Options{Logger: quietLogger()})

	_, err := r.Run(context.Background(), ids("jdoe"))
	require.NoError(t, err)
	require.Len(t, sink.records, 1)
	assert.Equal(t, "jdoe", sink.records[0].Source)
	assert.NotNil(t, sink.records[0].Projects)
}

// sourceRewriter returns a hand-built record with the wrong source and nil maps.
type sourceRewriter struct{}

func (sourceRewriter) ExtractOne(context.Context, types.ProfileIdentifier) types.ProfileRecord {
	return types.ProfileRecord{Source: "https://elsewhere/", Name: "X"}
}

func TestFaultError(t *testing.T) {
	err := &FaultError{Identifier: "a", Cause: errors.New("boom")}
	assert.Equal(t, "fault processing a: boom", err.Error())
	assert.ErrorIs(t, err, ErrUnexpectedFault)
	assert.Equal(t, "fault processing a", (&FaultError{Identifier: "a"}).Error())
}
