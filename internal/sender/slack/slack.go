// Package slack provides Slack alert delivery via Incoming Webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"hsr-monitor/internal/render"
	"hsr-monitor/internal/sender/retry"
	"hsr-monitor/internal/sender/strategy"
	"hsr-monitor/internal/sender/validation"
)

// Sender implements Slack alert delivery via an Incoming Webhook.
type Sender struct {
	webhookURL string
	httpClient *http.Client
}

// NewSender creates a Slack sender posting to webhookURL. An empty URL
// makes every Send a skip.
func NewSender(webhookURL string, timeout time.Duration) *Sender {
	return &Sender{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Type returns the channel name.
func (s *Sender) Type() string {
	return "slack"
}

// Send posts the alert's Block Kit message to the webhook.
func (s *Sender) Send(ctx context.Context, alert *render.Alert) error {
	if s.webhookURL == "" {
		return strategy.ErrNotConfigured
	}
	if !validation.IsValidURL(s.webhookURL) {
		return fmt.Errorf("invalid Slack webhook URL %q: must be an HTTP/HTTPS URL", validation.MaskURL(s.webhookURL))
	}

	jsonData, err := json.Marshal(alert.Slack)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to send Slack notification",
			"error", err,
			"webhook_url", validation.MaskURL(s.webhookURL),
			"run_id", alert.RunID,
		)
		return fmt.Errorf("failed to send Slack notification to %s: %w", validation.MaskURL(s.webhookURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("Slack webhook returned error status",
			"status_code", resp.StatusCode,
			"run_id", alert.RunID,
		)
		return &retry.StatusError{Service: "slack webhook", StatusCode: resp.StatusCode}
	}

	slog.Info("Successfully sent Slack notification",
		"run_id", alert.RunID,
		"notices", len(alert.Items),
		"blocks", len(alert.Slack.Blocks),
	)
	return nil
}
