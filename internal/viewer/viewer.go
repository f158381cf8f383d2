// Package viewer implements the interactive notice table: filtered fetch,
// "new since last visit" flags, sorting, terminal rendering, CSV export and
// per-transaction detail.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hsr-monitor/internal/detector"
	"hsr-monitor/internal/ftc"
	"hsr-monitor/internal/notice"
	"hsr-monitor/internal/watermark"
)

// EmptyMessage is shown when a fetch returns no notices.
const EmptyMessage = "No early termination notices found for the current filters."

// StatusNew is the status cell of a row newer than the last visit.
const StatusNew = "New"

// Options are the viewer's filter and sort controls.
type Options struct {
	Keyword string
	Date    time.Time // zero means no date filter
	Limit   int
	SortBy  SortKey
	Desc    bool
}

// Row is one displayed notice.
type Row struct {
	notice.Notice
	IsNew bool
}

// Status returns StatusNew for new rows and "" otherwise.
func (r Row) Status() string {
	if r.IsNew {
		return StatusNew
	}
	return ""
}

// Summary is the line above the table.
type Summary struct {
	Total      int
	New        int
	LatestDate string // "" when no row has a date
}

// View is the result of one viewer load.
type View struct {
	Rows    []Row
	Summary Summary
}

// Empty reports whether the fetch returned nothing.
func (v *View) Empty() bool {
	return len(v.Rows) == 0
}

// Viewer loads notices and flags the ones created since the last visit.
type Viewer struct {
	fetcher ftc.Fetcher
	store   watermark.Store
}

// New creates a viewer. fetcher is normally an *ftc.CachingFetcher.
func New(fetcher ftc.Fetcher, store watermark.Store) *Viewer {
	return &Viewer{fetcher: fetcher, store: store}
}

// Load fetches notices for opts, flags new rows against the stored
// watermark, sorts them and advances the watermark when the batch holds a
// newer created value. A first visit flags nothing. Only the upstream fetch
// error is returned.
func (v *Viewer) Load(ctx context.Context, opts Options) (*View, error) {
	batch, err := v.fetcher.Fetch(ctx, ftc.Query{
		Keyword: opts.Keyword,
		Date:    opts.Date,
		Limit:   opts.Limit,
	})
	if err != nil {
		return nil, err
	}

	view := &View{Rows: make([]Row, 0, len(batch))}
	if len(batch) == 0 {
		return view, nil
	}

	lastVisit, ok, err := v.store.Read(ctx)
	if err != nil {
		slog.Warn("Failed to read last visit, flagging nothing as new", "error", err)
	}
	if !ok {
		lastVisit = ""
	}

	detected := detector.Detect(batch, lastVisit, detector.ExcludeAll)

	for _, n := range batch {
		isNew := lastVisit != "" && detector.IsNew(n, lastVisit)
		view.Rows = append(view.Rows, Row{Notice: n, IsNew: isNew})
		if n.Date > view.Summary.LatestDate {
			view.Summary.LatestDate = n.Date
		}
	}
	view.Summary.Total = len(view.Rows)
	view.Summary.New = len(detected.NewItems)

	Sort(view.Rows, opts.SortBy, opts.Desc)

	// A filtered batch can top out below the last visit.
	if detected.NextWatermark > lastVisit {
		if err := v.store.Write(ctx, detected.NextWatermark); err != nil {
			slog.Warn("Failed to save last visit", "error", err)
		}
	}
	return view, nil
}

// Detail returns the first row with the given transaction number.
func (v *View) Detail(transactionNumber string) (Row, bool) {
	transactionNumber = strings.TrimSpace(transactionNumber)
	for _, r := range v.Rows {
		if r.TransactionNumber == transactionNumber {
			return r, true
		}
	}
	return Row{}, false
}

// ErrorMessage formats a load failure for display.
func ErrorMessage(err error) string {
	return fmt.Sprintf("Unable to load early termination notices: %v", err)
}
