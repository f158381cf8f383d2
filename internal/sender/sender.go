// Package sender builds the alert delivery channels from configuration.
package sender

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hsr-monitor/internal/config"
	"hsr-monitor/internal/sender/email"
	"hsr-monitor/internal/sender/email/provider"
	kafkasender "hsr-monitor/internal/sender/kafka"
	"hsr-monitor/internal/sender/slack"
	"hsr-monitor/internal/sender/strategy"
	"hsr-monitor/internal/subscriber"
)

// Channels holds the registered channels and the resources they own.
type Channels struct {
	Registry *strategy.Registry
	kafka    *kafkasender.Publisher
}

// NewChannels registers email, Slack and Kafka channels in that order.
// Unconfigured channels are still registered; they skip at send time.
func NewChannels(ctx context.Context, cfg *config.Config, subscribers subscriber.Store) (*Channels, error) {
	providers := NewProviderRegistry(ctx, cfg.Email, cfg.HTTPTimeout)

	registry := strategy.NewRegistry()
	registry.Register(email.NewSenderWithConfig(providers, subscribers, email.Config{
		From:             cfg.Email.From,
		FromName:         cfg.Email.FromName,
		DefaultRecipient: cfg.Email.DefaultRecipient,
	}))
	registry.Register(slack.NewSender(cfg.SlackWebhookURL, cfg.HTTPTimeout))

	publisher, err := kafkasender.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}
	registry.Register(publisher)

	slog.Info("Initialized alert channels",
		"channels", registry.List(),
		"email_providers", providers.List(),
		"slack_configured", cfg.SlackConfigured(),
		"kafka_configured", cfg.KafkaConfigured(),
	)
	return &Channels{Registry: registry, kafka: publisher}, nil
}

// Close releases the Kafka writer, if any.
func (c *Channels) Close() error {
	return c.kafka.Close()
}

// NewProviderRegistry registers every email provider, makes cfg.Provider the
// primary and the rest fallbacks in registration order. SES is registered
// only when selected since its credential chain resolves almost anywhere.
func NewProviderRegistry(ctx context.Context, cfg config.EmailConfig, timeout time.Duration) *provider.Registry {
	r := provider.NewRegistry()
	r.Register(provider.NewBrevoProvider(cfg.BrevoAPIKey, timeout))
	r.Register(provider.NewResendProvider(cfg.ResendAPIKey))
	r.Register(provider.NewSMTPProvider(provider.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
	}, timeout))
	if cfg.Provider == config.ProviderSES {
		r.Register(provider.NewSESProvider(ctx, cfg.AWSRegion))
	}

	if err := r.SetPrimary(cfg.Provider); err != nil {
		slog.Warn("Email provider not available, using first configured provider", "provider", cfg.Provider, "error", err)
	}

	var fallback []string
	for _, name := range r.List() {
		if name != cfg.Provider {
			fallback = append(fallback, name)
		}
	}
	_ = r.SetFallback(fallback...)
	return r
}
