// Package config provides configuration loading and validation for the HSR monitor.
// Values come from the environment (optionally a config file), with secrets
// falling back to the system keyring when unset.
package config

import (
	"fmt"
	"strings"
	"time"

	"hsr-monitor/internal/apperr"
	"hsr-monitor/internal/sender/validation"
)

const (
	// DefaultBaseURL is the FTC HSR early-termination notices endpoint.
	DefaultBaseURL = "https://api.ftc.gov/v0/hsr-early-termination-notices"

	DefaultScanLimit    = 50
	MinScanLimit        = 10
	MaxScanLimit        = 200
	DefaultPollInterval = 300 * time.Second
	DefaultHTTPTimeout  = 15 * time.Second

	DefaultStateFile       = "hsr_last_visit.json"
	DefaultSubscribersFile = "hsr_subscribers.json"
	DefaultEmailTemplate   = "templates/hsr_alert_email.html"
	DefaultKafkaTopic      = "hsr.notices.new"
)

// Email provider names accepted by EMAIL_PROVIDER.
const (
	ProviderBrevo  = "brevo"
	ProviderResend = "resend"
	ProviderSES    = "ses"
	ProviderSMTP   = "smtp"
)

// Watermark backends accepted by WATERMARK_BACKEND.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// EmailConfig holds the email channel settings.
type EmailConfig struct {
	Provider         string
	From             string
	FromName         string
	DefaultRecipient string
	BrevoAPIKey      string
	ResendAPIKey     string
	AWSRegion        string
	SMTPHost         string
	SMTPPort         string
	SMTPUser         string
	SMTPPassword     string
}

// Config holds all configuration parameters for the HSR monitor.
type Config struct {
	APIKey       string
	BaseURL      string
	ScanLimit    int
	PollInterval time.Duration
	HTTPTimeout  time.Duration

	StateFile        string
	WatermarkBackend string
	SubscribersFile  string
	SubscribersDSN   string
	EmailTemplate    string

	Email           EmailConfig
	SlackWebhookURL string
	KafkaBrokers    string
	KafkaTopic      string
	RedisAddr       string

	LogLevel  string
	LogFormat string
}

// SlackConfigured reports whether a Slack webhook is set.
func (c *Config) SlackConfigured() bool {
	return c.SlackWebhookURL != ""
}

// KafkaConfigured reports whether the notice event stream is enabled.
func (c *Config) KafkaConfigured() bool {
	return c.KafkaBrokers != ""
}

// Validate checks that all required configuration fields are set and have valid values.
// Failures are returned as *apperr.ConfigError.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return &apperr.ConfigError{Key: "FTC_API_KEY", Reason: "is required (set it in the environment or the system keyring)"}
	}
	if !validation.IsValidURL(c.BaseURL) {
		return &apperr.ConfigError{Key: "FTC_BASE_URL", Reason: fmt.Sprintf("must be an http(s) URL, got %q", c.BaseURL)}
	}
	if c.ScanLimit < MinScanLimit || c.ScanLimit > MaxScanLimit {
		return &apperr.ConfigError{Key: "HSR_MONITOR_LIMIT", Reason: fmt.Sprintf("must be between %d and %d, got %d", MinScanLimit, MaxScanLimit, c.ScanLimit)}
	}
	if c.PollInterval <= 0 {
		return &apperr.ConfigError{Key: "HSR_POLL_INTERVAL", Reason: "must be > 0"}
	}
	if c.HTTPTimeout <= 0 {
		return &apperr.ConfigError{Key: "HTTP_TIMEOUT", Reason: "must be > 0"}
	}
	if c.StateFile == "" && c.WatermarkBackend == BackendFile {
		return &apperr.ConfigError{Key: "HSR_STATE_FILE", Reason: "cannot be empty"}
	}
	switch c.WatermarkBackend {
	case BackendFile:
	case BackendRedis:
		if c.RedisAddr == "" {
			return &apperr.ConfigError{Key: "REDIS_ADDR", Reason: "is required when WATERMARK_BACKEND=redis"}
		}
	default:
		return &apperr.ConfigError{Key: "WATERMARK_BACKEND", Reason: fmt.Sprintf("must be %q or %q, got %q", BackendFile, BackendRedis, c.WatermarkBackend)}
	}
	switch c.Email.Provider {
	case ProviderBrevo, ProviderResend, ProviderSES, ProviderSMTP:
	default:
		return &apperr.ConfigError{Key: "EMAIL_PROVIDER", Reason: fmt.Sprintf("unknown provider %q", c.Email.Provider)}
	}
	if c.SlackWebhookURL != "" && !validation.IsValidURL(c.SlackWebhookURL) {
		return &apperr.ConfigError{Key: "SLACK_WEBHOOK_URL", Reason: "must be an http(s) URL"}
	}
	if c.KafkaBrokers != "" && c.KafkaTopic == "" {
		return &apperr.ConfigError{Key: "KAFKA_NOTICES_TOPIC", Reason: "cannot be empty when KAFKA_BROKERS is set"}
	}
	return nil
}
