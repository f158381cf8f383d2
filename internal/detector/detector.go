// Package detector computes which notices are new relative to a stored
// watermark (the maximum "created" value already processed).
//
// Timestamps are compared as strings. Upstream "created" values are ISO 8601
// and assumed to sort chronologically; that ordering is not verified here.
package detector

import "hsr-monitor/internal/notice"

// FirstRunPolicy decides what counts as new when no watermark exists yet.
type FirstRunPolicy int

const (
	// IncludeAll treats every notice as new on first run. The alert pipeline
	// uses it so the first alert carries the backlog.
	IncludeAll FirstRunPolicy = iota
	// ExcludeAll treats nothing as new on first run. The interactive viewer
	// uses it so a first-time visitor does not see every row flagged.
	ExcludeAll
)

// String returns the policy name for logging.
func (p FirstRunPolicy) String() string {
	switch p {
	case IncludeAll:
		return "include_all"
	case ExcludeAll:
		return "exclude_all"
	default:
		return "unknown"
	}
}

// Result is the outcome of comparing a batch with a watermark.
type Result struct {
	// NewItems preserves the order of the input batch.
	NewItems []notice.Notice
	// NextWatermark is the maximum created value in the batch, or "" when
	// the batch is empty or no notice has a created value.
	NextWatermark string
}

// HasNextWatermark reports whether the batch yielded a usable watermark.
func (r Result) HasNextWatermark() bool {
	return r.NextWatermark != ""
}

// Detect returns the notices strictly newer than watermark and the next
// watermark value. An empty watermark means none has been stored; policy
// then decides the outcome. Notices without a created value are never new.
func Detect(batch []notice.Notice, watermark string, policy FirstRunPolicy) Result {
	res := Result{
		NewItems:      make([]notice.Notice, 0),
		NextWatermark: MaxCreated(batch),
	}

	if watermark == "" {
		if policy == IncludeAll {
			res.NewItems = append(res.NewItems, batch...)
		}
		return res
	}

	for _, n := range batch {
		if IsNew(n, watermark) {
			res.NewItems = append(res.NewItems, n)
		}
	}
	return res
}

// IsNew reports whether n is strictly newer than a non-empty watermark.
// Ties with the watermark are excluded.
func IsNew(n notice.Notice, watermark string) bool {
	return n.Created != "" && n.Created > watermark
}

// MaxCreated returns the lexicographic maximum of the defined created values.
func MaxCreated(batch []notice.Notice) string {
	max := ""
	for _, n := range batch {
		if n.Created > max {
			max = n.Created
		}
	}
	return max
}
