package render

import (
	"time"

	"hsr-monitor/internal/notice"
)

// EventTypeNoticeDetected identifies notice events on the stream.
const EventTypeNoticeDetected = "NoticeDetected"

// NoticeEvent is published once per new notice.
type NoticeEvent struct {
	EventType     string        `json:"event_type"`
	SchemaVersion int           `json:"schema_version"`
	RunID         string        `json:"run_id"`
	DetectedAt    string        `json:"detected_at"` // RFC 3339, UTC
	Notice        notice.Notice `json:"notice"`
}

// RenderEvents builds one NoticeEvent per item.
func RenderEvents(runID string, detectedAt time.Time, items []notice.Notice) []NoticeEvent {
	ts := detectedAt.UTC().Format(time.RFC3339)
	events := make([]NoticeEvent, 0, len(items))
	for _, n := range items {
		events = append(events, NoticeEvent{
			EventType:     EventTypeNoticeDetected,
			SchemaVersion: 1,
			RunID:         runID,
			DetectedAt:    ts,
			Notice:        n,
		})
	}
	return events
}
