package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"hsr-monitor/internal/notice"
	"hsr-monitor/internal/render"
	"hsr-monitor/internal/sender/retry"
	"hsr-monitor/internal/sender/strategy"
)

type fakeChannel struct {
	channelType string
	errs        []error // returned in order, last one repeats
	calls       int
	panics      bool
}

func (f *fakeChannel) Type() string { return f.channelType }

func (f *fakeChannel) Send(ctx context.Context, alert *render.Alert) error {
	f.calls++
	if f.panics {
		panic("boom")
	}
	if len(f.errs) == 0 {
		return nil
	}
	i := f.calls - 1
	if i >= len(f.errs) {
		i = len(f.errs) - 1
	}
	return f.errs[i]
}

func testAlert() *render.Alert {
	return render.NewRenderer(nil).Build("run-1", time.Now(), []notice.Notice{{ID: "1"}})
}

func newDispatcher(channels ...strategy.Channel) *Dispatcher {
	r := strategy.NewRegistry()
	for _, ch := range channels {
		r.Register(ch)
	}
	return New(r).WithRetryConfig(retry.Config{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	})
}

func TestDispatch_AllDelivered(t *testing.T) {
	email := &fakeChannel{channelType: "email"}
	slack := &fakeChannel{channelType: "slack"}

	report := newDispatcher(email, slack).Dispatch(context.Background(), testAlert())

	if !report.OK() {
		t.Errorf("report.Failures = %v", report.Failures)
	}
	if len(report.Delivered) != 2 || len(report.Attempted) != 2 || len(report.Skipped) != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestDispatch_FailureDoesNotBlockOtherChannels(t *testing.T) {
	email := &fakeChannel{channelType: "email", errs: []error{errors.New("quota exceeded")}}
	slack := &fakeChannel{channelType: "slack"}

	report := newDispatcher(email, slack).Dispatch(context.Background(), testAlert())

	if slack.calls != 1 {
		t.Errorf("slack called %d times, want 1", slack.calls)
	}
	if len(report.Failures) != 1 || report.Failures[0].Channel != "email" {
		t.Fatalf("report.Failures = %v, want one email failure", report.Failures)
	}
	if len(report.Delivered) != 1 || report.Delivered[0] != "slack" {
		t.Errorf("report.Delivered = %v, want [slack]", report.Delivered)
	}
}

func TestDispatch_SkipsUnconfigured(t *testing.T) {
	email := &fakeChannel{channelType: "email", errs: []error{strategy.ErrNotConfigured}}
	slack := &fakeChannel{channelType: "slack", errs: []error{strategy.ErrNotConfigured}}

	report := newDispatcher(email, slack).Dispatch(context.Background(), testAlert())

	if len(report.Skipped) != 2 || len(report.Attempted) != 0 || !report.OK() {
		t.Errorf("report = %+v, want both skipped", report)
	}
	if email.calls != 1 {
		t.Errorf("unconfigured channel retried: %d calls", email.calls)
	}
}

func TestDispatch_RetriesTransientErrors(t *testing.T) {
	slack := &fakeChannel{channelType: "slack", errs: []error{
		&retry.StatusError{Service: "slack", StatusCode: 503},
		nil,
	}}

	report := newDispatcher(slack).Dispatch(context.Background(), testAlert())

	if !report.OK() || slack.calls != 2 {
		t.Errorf("report = %+v, calls = %d, want success on second call", report, slack.calls)
	}
}

func TestDispatch_RetryExhausted(t *testing.T) {
	slack := &fakeChannel{channelType: "slack", errs: []error{&retry.StatusError{Service: "slack", StatusCode: 502}}}

	report := newDispatcher(slack).Dispatch(context.Background(), testAlert())

	if slack.calls != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", slack.calls)
	}
	var statusErr *retry.StatusError
	if len(report.Failures) != 1 || !errors.As(report.Failures[0], &statusErr) {
		t.Errorf("report.Failures = %v, want wrapped StatusError", report.Failures)
	}
}

func TestDispatch_PanicIsolated(t *testing.T) {
	email := &fakeChannel{channelType: "email", panics: true}
	slack := &fakeChannel{channelType: "slack"}

	report := newDispatcher(email, slack).Dispatch(context.Background(), testAlert())

	if len(report.Failures) != 1 || slack.calls != 1 {
		t.Errorf("report = %+v, slack calls = %d", report, slack.calls)
	}
}

type blockingChannel struct{}

func (blockingChannel) Type() string { return "slack" }

func (blockingChannel) Send(ctx context.Context, alert *render.Alert) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDispatch_CallTimeoutBoundsRetries(t *testing.T) {
	d := newDispatcher(blockingChannel{}).WithCallTimeout(20 * time.Millisecond)

	start := time.Now()
	report := d.Dispatch(context.Background(), testAlert())
	elapsed := time.Since(start)

	if len(report.Failures) != 1 {
		t.Fatalf("Failures = %v, want 1", report.Failures)
	}
	if !errors.Is(report.Failures[0], context.DeadlineExceeded) {
		t.Errorf("failure = %v, want deadline exceeded", report.Failures[0])
	}
	if elapsed > time.Second {
		t.Errorf("Dispatch took %v, want it bounded by the call timeout", elapsed)
	}
}

func TestWithCallTimeout_IgnoresNonPositive(t *testing.T) {
	d := New(strategy.NewRegistry()).WithCallTimeout(0)
	if d.callTimeout != DefaultCallTimeout {
		t.Errorf("callTimeout = %v, want %v", d.callTimeout, DefaultCallTimeout)
	}
}
