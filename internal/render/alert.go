package render

import (
	"time"

	"hsr-monitor/internal/notice"
)

// Alert carries every channel's rendering of one batch of new notices.
type Alert struct {
	RunID      string
	DetectedAt time.Time
	Items      []notice.Notice
	Email      Email
	Slack      SlackMessage
}

// Renderer renders alerts for all channels.
type Renderer struct {
	email *EmailRenderer
}

// NewRenderer returns a Renderer using email for the HTML body.
func NewRenderer(email *EmailRenderer) *Renderer {
	if email == nil {
		email = NewEmailRenderer("")
	}
	return &Renderer{email: email}
}

// Build renders items for every channel.
func (r *Renderer) Build(runID string, detectedAt time.Time, items []notice.Notice) *Alert {
	return &Alert{
		RunID:      runID,
		DetectedAt: detectedAt,
		Items:      items,
		Email:      r.email.Render(items),
		Slack:      RenderSlack(items),
	}
}

// Events returns the stream events for the alert.
func (a *Alert) Events() []NoticeEvent {
	return RenderEvents(a.RunID, a.DetectedAt, a.Items)
}
