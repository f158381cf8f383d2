package sender

import (
	"context"
	"strings"
	"testing"
	"time"

	"hsr-monitor/internal/config"
)

func TestNewProviderRegistry(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.EmailConfig
		wantList    string
		wantPrimary string
		wantErr     bool
	}{
		{
			name:        "brevo primary",
			cfg:         config.EmailConfig{Provider: config.ProviderBrevo, BrevoAPIKey: "xkeysib-1", ResendAPIKey: "re_1"},
			wantList:    "brevo,resend,smtp",
			wantPrimary: "brevo",
		},
		{
			name:        "unconfigured primary falls back",
			cfg:         config.EmailConfig{Provider: config.ProviderBrevo, ResendAPIKey: "re_1"},
			wantList:    "brevo,resend,smtp",
			wantPrimary: "resend",
		},
		{
			name:        "smtp primary",
			cfg:         config.EmailConfig{Provider: config.ProviderSMTP, SMTPHost: "localhost", SMTPPort: "2525"},
			wantList:    "brevo,resend,smtp",
			wantPrimary: "smtp",
		},
		{
			name:     "nothing configured",
			cfg:      config.EmailConfig{Provider: config.ProviderResend},
			wantList: "brevo,resend,smtp",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewProviderRegistry(context.Background(), tt.cfg, time.Second)
			if got := strings.Join(r.List(), ","); got != tt.wantList {
				t.Errorf("List() = %s, want %s", got, tt.wantList)
			}
			p, err := r.GetPrimary()
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetPrimary() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Name() != tt.wantPrimary {
				t.Errorf("GetPrimary() = %s, want %s", p.Name(), tt.wantPrimary)
			}
		})
	}
}

func TestNewChannels_Order(t *testing.T) {
	cfg := &config.Config{
		HTTPTimeout: time.Second,
		Email:       config.EmailConfig{Provider: config.ProviderBrevo},
		KafkaTopic:  config.DefaultKafkaTopic,
	}

	ch, err := NewChannels(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewChannels() error = %v", err)
	}
	defer ch.Close()

	if got := strings.Join(ch.Registry.List(), ","); got != "email,slack,kafka" {
		t.Errorf("channels = %s, want email,slack,kafka", got)
	}
}
