// Package email delivers alert emails to the subscriber list through the
// configured provider registry.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"hsr-monitor/internal/render"
	"hsr-monitor/internal/sender/email/provider"
	"hsr-monitor/internal/sender/strategy"
	"hsr-monitor/internal/subscriber"
)

// Config holds the sender identity and default recipient.
type Config struct {
	From             string
	FromName         string
	DefaultRecipient string
}

// Sender implements alert email delivery.
type Sender struct {
	providers   *provider.Registry
	subscribers subscriber.Store
	cfg         Config
}

// NewSenderWithConfig creates an email sender. subscribers may be nil, in
// which case only the default recipient is used.
func NewSenderWithConfig(providers *provider.Registry, subscribers subscriber.Store, cfg Config) *Sender {
	return &Sender{
		providers:   providers,
		subscribers: subscribers,
		cfg:         cfg,
	}
}

// Type returns the channel name.
func (s *Sender) Type() string {
	return "email"
}

// Recipients resolves the alert recipients: every stored subscriber, else
// the default recipient, else none. A subscriber store failure is logged
// and treated as an empty list.
func (s *Sender) Recipients(ctx context.Context) []string {
	if s.subscribers != nil {
		subs, err := s.subscribers.List(ctx)
		if err != nil {
			slog.Warn("Failed to load subscribers, falling back to default recipient", "error", err)
		}
		if emails := subscriber.Emails(subs); len(emails) > 0 {
			return emails
		}
	}
	if s.cfg.DefaultRecipient != "" {
		return []string{s.cfg.DefaultRecipient}
	}
	return nil
}

// Send emails the alert to the resolved recipients.
func (s *Sender) Send(ctx context.Context, alert *render.Alert) error {
	if s.providers == nil || !s.providers.HasConfigured() {
		return strategy.ErrNotConfigured
	}
	if s.cfg.From == "" {
		return fmt.Errorf("sender address is required (set ALERT_EMAIL_FROM)")
	}

	recipients := s.Recipients(ctx)
	if len(recipients) == 0 {
		slog.Info("No email recipients configured, skipping email", "run_id", alert.RunID)
		return strategy.ErrNotConfigured
	}

	req := &provider.EmailRequest{
		From:     s.cfg.From,
		FromName: s.cfg.FromName,
		To:       recipients,
		Subject:  alert.Email.Subject,
		HTML:     alert.Email.HTML,
		Body:     alert.Email.Text,
	}
	if err := s.providers.Send(ctx, req); err != nil {
		return err
	}

	slog.Info("Successfully sent email notification",
		"run_id", alert.RunID,
		"recipients", len(recipients),
		"subject", alert.Email.Subject,
	)
	return nil
}
