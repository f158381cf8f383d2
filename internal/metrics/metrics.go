// Package metrics provides metrics recording interfaces for the poll orchestrator.
// It uses the null object pattern to avoid nil checks throughout the codebase.
package metrics

import "time"

// Recorder defines the interface for recording poll run metrics.
type Recorder interface {
	// RecordRun records a completed run with its latency.
	RecordRun(latency time.Duration)

	// RecordFetchError increments the upstream fetch error counter.
	RecordFetchError()

	// RecordFetched adds the size of a fetched batch.
	RecordFetched(n int)

	// RecordNew adds the number of notices detected as new.
	RecordNew(n int)

	// RecordDelivered increments the delivered counter for a channel.
	RecordDelivered(channel string)

	// RecordDeliveryFailure increments the failure counter for a channel.
	RecordDeliveryFailure(channel string)
}

// NoOp is a no-op implementation of Recorder that discards all metrics.
// Use this when metrics collection is not configured.
type NoOp struct{}

// NewNoOp creates a new no-op metrics recorder.
func NewNoOp() *NoOp {
	return &NoOp{}
}

func (n *NoOp) RecordRun(_ time.Duration)      {}
func (n *NoOp) RecordFetchError()              {}
func (n *NoOp) RecordFetched(_ int)            {}
func (n *NoOp) RecordNew(_ int)                {}
func (n *NoOp) RecordDelivered(_ string)       {}
func (n *NoOp) RecordDeliveryFailure(_ string) {}

// Ensure NoOp implements Recorder
var _ Recorder = (*NoOp)(nil)
