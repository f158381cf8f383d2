// Package dispatcher delivers one rendered alert to every registered channel.
// Channels are independent: a failure on one never stops the others.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hsr-monitor/internal/apperr"
	"hsr-monitor/internal/render"
	"hsr-monitor/internal/sender/retry"
	"hsr-monitor/internal/sender/strategy"
)

// DefaultCallTimeout bounds one channel delivery including retries. It
// matches the default outbound HTTP timeout.
const DefaultCallTimeout = 15 * time.Second

// Report summarizes one dispatch.
type Report struct {
	Attempted []string
	Delivered []string
	Skipped   []string
	Failures  []*apperr.DeliveryError
}

// OK reports whether no attempted channel failed.
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// Dispatcher coordinates alert delivery across channels.
type Dispatcher struct {
	registry    *strategy.Registry
	retryCfg    retry.Config
	callTimeout time.Duration
}

// New creates a dispatcher over the channels in registry.
func New(registry *strategy.Registry) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		retryCfg:    retry.DefaultConfig(),
		callTimeout: DefaultCallTimeout,
	}
}

// WithRetryConfig overrides the per-channel retry policy.
func (d *Dispatcher) WithRetryConfig(cfg retry.Config) *Dispatcher {
	d.retryCfg = cfg
	return d
}

// WithCallTimeout sets the budget for one channel delivery, retries
// included. Non-positive values keep the current timeout.
func (d *Dispatcher) WithCallTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.callTimeout = timeout
	}
	return d
}

// Dispatch sends alert on every channel in registration order. Delivery
// errors are collected as warnings in the Report, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *render.Alert) Report {
	var report Report

	for _, channelType := range d.registry.List() {
		ch, _ := d.registry.Get(channelType)

		err := d.deliver(ctx, ch, alert)
		switch {
		case errors.Is(err, strategy.ErrNotConfigured):
			slog.Debug("Channel not configured, skipping", "channel", channelType, "run_id", alert.RunID)
			report.Skipped = append(report.Skipped, channelType)
		case err != nil:
			report.Attempted = append(report.Attempted, channelType)
			derr := &apperr.DeliveryError{Channel: channelType, Err: err}
			slog.Warn("Alert delivery failed",
				"channel", channelType,
				"run_id", alert.RunID,
				"error", err,
			)
			report.Failures = append(report.Failures, derr)
		default:
			report.Attempted = append(report.Attempted, channelType)
			report.Delivered = append(report.Delivered, channelType)
		}
	}

	if len(report.Failures) > 0 && len(report.Delivered) > 0 {
		slog.Warn("Some channels failed",
			"run_id", alert.RunID,
			"successful", len(report.Delivered),
			"failed", len(report.Failures),
		)
	}
	return report
}

// deliver runs one channel with retries inside its own timeout. A panic in
// a channel is converted into an error so the remaining channels still run.
func (d *Dispatcher) deliver(ctx context.Context, ch strategy.Channel, alert *render.Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s channel: %v", ch.Type(), r)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	operation := fmt.Sprintf("send_%s_%s", ch.Type(), alert.RunID)
	return retry.WithRetry(callCtx, d.retryCfg, operation, func() error {
		return ch.Send(callCtx, alert)
	})
}
