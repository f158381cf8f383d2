package metrics

import (
	"time"

	"hsr-monitor/pkg/metrics"
)

// CollectorAdapter adapts pkg/metrics.Collector to the Recorder interface.
type CollectorAdapter struct {
	collector *metrics.Collector
}

// NewCollectorAdapter wraps a metrics.Collector to implement Recorder.
func NewCollectorAdapter(collector *metrics.Collector) *CollectorAdapter {
	return &CollectorAdapter{collector: collector}
}

func (a *CollectorAdapter) RecordRun(latency time.Duration) {
	a.collector.RecordRun(latency)
}

func (a *CollectorAdapter) RecordFetchError() {
	a.collector.RecordFetchError()
}

func (a *CollectorAdapter) RecordFetched(n int) {
	a.collector.RecordFetched(n)
}

func (a *CollectorAdapter) RecordNew(n int) {
	a.collector.RecordNew(n)
}

func (a *CollectorAdapter) RecordDelivered(channel string) {
	a.collector.IncrementCustom("alerts_delivered")
	a.collector.IncrementCustom("alerts_delivered_" + channel)
}

func (a *CollectorAdapter) RecordDeliveryFailure(channel string) {
	a.collector.IncrementCustom("delivery_failures")
	a.collector.IncrementCustom("delivery_failures_" + channel)
}

// Ensure CollectorAdapter implements Recorder
var _ Recorder = (*CollectorAdapter)(nil)
