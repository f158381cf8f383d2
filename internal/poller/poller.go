// Package poller runs the fetch, detect, alert and persist sequence, either
// once or on a fixed interval.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hsr-monitor/internal/detector"
	"hsr-monitor/internal/dispatcher"
	"hsr-monitor/internal/ftc"
	"hsr-monitor/internal/metrics"
	"hsr-monitor/internal/render"
	"hsr-monitor/internal/watermark"
)

// Dispatcher delivers a rendered alert. *dispatcher.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert *render.Alert) dispatcher.Report
}

// Status describes how a run ended.
type Status string

const (
	StatusNoData      Status = "no_data"
	StatusNoWatermark Status = "no_created_values"
	StatusNoNew       Status = "no_new_notices"
	StatusAlerted     Status = "alerted"
)

// Result summarizes one run.
type Result struct {
	RunID     string
	Status    Status
	Fetched   int
	NewItems  int
	Watermark string // value written, "" when the store was not touched
	Report    dispatcher.Report
}

// Poller ties the fetcher, detector, renderer, dispatcher and watermark store together.
type Poller struct {
	fetcher    ftc.Fetcher
	store      watermark.Store
	renderer   *render.Renderer
	dispatcher Dispatcher
	metrics    metrics.Recorder
	limit      int

	now   func() time.Time
	newID func() string
}

// New creates a poller fetching limit notices per run. A nil recorder
// disables metrics.
func New(fetcher ftc.Fetcher, store watermark.Store, renderer *render.Renderer, d Dispatcher, rec metrics.Recorder, limit int) *Poller {
	if rec == nil {
		rec = metrics.NewNoOp()
	}
	if renderer == nil {
		renderer = render.NewRenderer(nil)
	}
	return &Poller{
		fetcher:    fetcher,
		store:      store,
		renderer:   renderer,
		dispatcher: d,
		metrics:    rec,
		limit:      limit,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Run executes one poll. The only error returned is the upstream fetch
// failure; delivery and persistence problems are logged and absorbed.
func (p *Poller) Run(ctx context.Context) (Result, error) {
	start := p.now()
	res := Result{RunID: p.newID()}
	defer func() { p.metrics.RecordRun(p.now().Sub(start)) }()

	log := slog.With("run_id", res.RunID)
	log.Info("Starting poll run", "limit", p.limit)

	batch, err := p.fetcher.Fetch(ctx, ftc.Query{Limit: p.limit})
	if err != nil {
		p.metrics.RecordFetchError()
		log.Error("Failed to fetch notices", "error", err)
		return res, err
	}
	res.Fetched = len(batch)
	p.metrics.RecordFetched(len(batch))

	if len(batch) == 0 {
		res.Status = StatusNoData
		log.Info("No notices returned")
		return res, nil
	}
	if detector.MaxCreated(batch) == "" {
		res.Status = StatusNoWatermark
		log.Info("No created values in batch, leaving watermark untouched", "fetched", len(batch))
		return res, nil
	}

	current := p.readWatermark(ctx, log)
	detected := detector.Detect(batch, current, detector.IncludeAll)
	res.NewItems = len(detected.NewItems)
	p.metrics.RecordNew(len(detected.NewItems))

	if len(detected.NewItems) == 0 {
		res.Status = StatusNoNew
		log.Info("No new notices", "fetched", len(batch), "watermark", current)
		return res, nil
	}

	log.Info("New notices detected",
		"new", len(detected.NewItems),
		"fetched", len(batch),
		"watermark", current,
		"first_run", current == "",
	)

	alert := p.renderer.Build(res.RunID, p.now(), detected.NewItems)
	res.Report = p.dispatcher.Dispatch(ctx, alert)
	for _, ch := range res.Report.Delivered {
		p.metrics.RecordDelivered(ch)
	}
	for _, f := range res.Report.Failures {
		p.metrics.RecordDeliveryFailure(f.Channel)
	}
	res.Status = StatusAlerted

	if err := p.store.Write(ctx, detected.NextWatermark); err != nil {
		log.Warn("Failed to persist watermark", "error", err, "watermark", detected.NextWatermark)
	} else {
		res.Watermark = detected.NextWatermark
	}

	log.Info("Poll run completed",
		"delivered", res.Report.Delivered,
		"skipped", res.Report.Skipped,
		"failed", len(res.Report.Failures),
		"watermark", detected.NextWatermark,
	)
	return res, nil
}

// RunOnce executes a single run for scheduled execution. A non-nil error
// should become a non-zero exit status.
func (p *Poller) RunOnce(ctx context.Context) error {
	_, err := p.Run(ctx)
	return err
}

// RunLoop executes Run every interval until ctx is cancelled. Run errors are
// logged and the loop continues. It returns nil on cancellation.
func (p *Poller) RunLoop(ctx context.Context, interval time.Duration) error {
	slog.Info("Starting poll loop", "interval", interval)

	for {
		if _, err := p.Run(ctx); err != nil {
			slog.Warn("Poll run failed, will retry next interval", "error", err, "interval", interval)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("Poll loop stopped")
			return nil
		case <-timer.C:
		}
	}
}

func (p *Poller) readWatermark(ctx context.Context, log *slog.Logger) string {
	value, ok, err := p.store.Read(ctx)
	if err != nil {
		log.Warn("Failed to read watermark, treating as absent", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return value
}
