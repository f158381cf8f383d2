package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"hsr-monitor/internal/apperr"
	"hsr-monitor/internal/dispatcher"
	"hsr-monitor/internal/ftc"
	"hsr-monitor/internal/notice"
	"hsr-monitor/internal/render"
)

// fakeFetcher returns the same batch (or error) on every call.
type fakeFetcher struct {
	mu      sync.Mutex
	batch   []notice.Notice
	err     error
	queries []ftc.Query
}

func (f *fakeFetcher) Fetch(ctx context.Context, q ftc.Query) ([]notice.Notice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// memStore is an in-memory watermark store.
type memStore struct {
	value    string
	readErr  error
	writeErr error
	writes   int
}

func (s *memStore) Read(ctx context.Context) (string, bool, error) {
	if s.readErr != nil {
		return "", false, s.readErr
	}
	return s.value, s.value != "", nil
}

func (s *memStore) Write(ctx context.Context, value string) error {
	if value == "" {
		return nil
	}
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	s.value = value
	return nil
}

// recordingDispatcher records alerts it was asked to deliver.
type recordingDispatcher struct {
	alerts []*render.Alert
	report dispatcher.Report
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, alert *render.Alert) dispatcher.Report {
	d.alerts = append(d.alerts, alert)
	return d.report
}

// fakeChannel implements strategy.Channel.
type fakeChannel struct {
	channelType string
	err         error
	sent        []*render.Alert
}

func (c *fakeChannel) Type() string { return c.channelType }

func (c *fakeChannel) Send(ctx context.Context, alert *render.Alert) error {
	c.sent = append(c.sent, alert)
	return c.err
}

// countingRecorder implements metrics.Recorder.
type countingRecorder struct {
	runs, fetchErrors, fetched, newItems int
	delivered, failed                    []string
}

func (r *countingRecorder) RecordRun(_ time.Duration)            { r.runs++ }
func (r *countingRecorder) RecordFetchError()                    { r.fetchErrors++ }
func (r *countingRecorder) RecordFetched(n int)                  { r.fetched += n }
func (r *countingRecorder) RecordNew(n int)                      { r.newItems += n }
func (r *countingRecorder) RecordDelivered(channel string)       { r.delivered = append(r.delivered, channel) }
func (r *countingRecorder) RecordDeliveryFailure(channel string) { r.failed = append(r.failed, channel) }

var (
	errUpstream    = &apperr.UpstreamError{StatusCode: 503, Err: errors.New("service unavailable")}
	errPersistence = &apperr.PersistenceError{Op: "write", Path: "state.json", Err: errors.New("read-only file system")}
)
