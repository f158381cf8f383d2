package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"hsr-monitor/internal/apperr"
)

// secretKeys are looked up in the SecretSource when the environment leaves them unset.
var secretKeys = []string{
	"ftc_api_key",
	"brevo_api_key",
	"resend_api_key",
	"smtp_password",
	"slack_webhook_url",
}

// Load reads configuration from the environment and, when path is non-empty,
// a YAML file. Environment variables take precedence over the file. The
// returned Config has not been validated.
func Load(path string, secrets SecretSource) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(*os.PathError); !ok {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					return nil, fmt.Errorf("reading config %s: %w", path, err)
				}
			}
		}
	}

	if secrets == nil {
		secrets = NoSecrets{}
	}
	for _, key := range secretKeys {
		if strings.TrimSpace(v.GetString(key)) != "" {
			continue
		}
		value, err := secrets.Get(strings.ToUpper(key))
		if err != nil {
			slog.Debug("Secret lookup failed, treating as unset", "key", strings.ToUpper(key), "error", err)
			continue
		}
		if value != "" {
			v.Set(key, value)
		}
	}

	limit, err := parseInt(v.GetString("hsr_monitor_limit"))
	if err != nil {
		return nil, &apperr.ConfigError{Key: "HSR_MONITOR_LIMIT", Reason: err.Error()}
	}
	interval, err := parseSeconds(v.GetString("hsr_poll_interval"))
	if err != nil {
		return nil, &apperr.ConfigError{Key: "HSR_POLL_INTERVAL", Reason: err.Error()}
	}
	timeout, err := parseSeconds(v.GetString("http_timeout"))
	if err != nil {
		return nil, &apperr.ConfigError{Key: "HTTP_TIMEOUT", Reason: err.Error()}
	}

	cfg := &Config{
		APIKey:       strings.TrimSpace(v.GetString("ftc_api_key")),
		BaseURL:      strings.TrimSpace(v.GetString("ftc_base_url")),
		ScanLimit:    limit,
		PollInterval: interval,
		HTTPTimeout:  timeout,

		StateFile:        v.GetString("hsr_state_file"),
		WatermarkBackend: strings.ToLower(v.GetString("watermark_backend")),
		SubscribersFile:  v.GetString("hsr_subscribers_file"),
		SubscribersDSN:   v.GetString("subscribers_dsn"),
		EmailTemplate:    v.GetString("hsr_email_template"),

		Email: EmailConfig{
			Provider:         strings.ToLower(strings.TrimSpace(v.GetString("email_provider"))),
			From:             v.GetString("alert_email_from"),
			FromName:         v.GetString("alert_email_from_name"),
			DefaultRecipient: strings.TrimSpace(v.GetString("alert_email_to")),
			BrevoAPIKey:      v.GetString("brevo_api_key"),
			ResendAPIKey:     v.GetString("resend_api_key"),
			AWSRegion:        v.GetString("aws_region"),
			SMTPHost:         v.GetString("smtp_host"),
			SMTPPort:         v.GetString("smtp_port"),
			SMTPUser:         v.GetString("smtp_user"),
			SMTPPassword:     v.GetString("smtp_password"),
		},
		SlackWebhookURL: strings.TrimSpace(v.GetString("slack_webhook_url")),
		KafkaBrokers:    v.GetString("kafka_brokers"),
		KafkaTopic:      v.GetString("kafka_notices_topic"),
		RedisAddr:       v.GetString("redis_addr"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ftc_base_url", DefaultBaseURL)
	v.SetDefault("hsr_monitor_limit", strconv.Itoa(DefaultScanLimit))
	v.SetDefault("hsr_poll_interval", "300")
	v.SetDefault("http_timeout", "15")
	v.SetDefault("hsr_state_file", DefaultStateFile)
	v.SetDefault("watermark_backend", BackendFile)
	v.SetDefault("hsr_subscribers_file", DefaultSubscribersFile)
	v.SetDefault("hsr_email_template", DefaultEmailTemplate)
	v.SetDefault("email_provider", ProviderBrevo)
	v.SetDefault("alert_email_from_name", "HSR Monitor")
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("smtp_port", "587")
	v.SetDefault("kafka_notices_topic", DefaultKafkaTopic)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// AutomaticEnv only consults keys viper already knows about.
	for _, key := range []string{
		"ftc_api_key", "subscribers_dsn", "alert_email_from", "alert_email_to",
		"brevo_api_key", "resend_api_key", "smtp_host", "smtp_user", "smtp_password",
		"slack_webhook_url", "kafka_brokers", "redis_addr",
	} {
		v.SetDefault(key, "")
	}
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("must be an integer, got %q", s)
	}
	return n, nil
}

// parseSeconds accepts a bare number of seconds ("300") or a Go duration ("5m").
func parseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("must be seconds or a duration, got %q", s)
	}
	return d, nil
}
