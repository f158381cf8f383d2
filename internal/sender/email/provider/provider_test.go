package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hsr-monitor/internal/sender/retry"
)

type fakeProvider struct {
	name       string
	configured bool
	err        error
	sent       []*EmailRequest
}

func (f *fakeProvider) Name() string       { return f.name }
func (f *fakeProvider) IsConfigured() bool { return f.configured }
func (f *fakeProvider) Send(ctx context.Context, req *EmailRequest) error {
	f.sent = append(f.sent, req)
	return f.err
}

func TestRegistry_GetPrimary(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(r *Registry)
		want    string
		wantErr bool
	}{
		{
			name: "primary configured",
			setup: func(r *Registry) {
				r.Register(&fakeProvider{name: "brevo", configured: true})
				r.Register(&fakeProvider{name: "smtp", configured: true})
				r.SetPrimary("brevo")
			},
			want: "brevo",
		},
		{
			name: "primary unconfigured uses fallback",
			setup: func(r *Registry) {
				r.Register(&fakeProvider{name: "brevo"})
				r.Register(&fakeProvider{name: "resend", configured: true})
				r.Register(&fakeProvider{name: "smtp", configured: true})
				r.SetPrimary("brevo")
				r.SetFallback("smtp")
			},
			want: "smtp",
		},
		{
			name: "first configured in registration order",
			setup: func(r *Registry) {
				r.Register(&fakeProvider{name: "brevo"})
				r.Register(&fakeProvider{name: "resend", configured: true})
				r.Register(&fakeProvider{name: "smtp", configured: true})
				r.SetPrimary("brevo")
			},
			want: "resend",
		},
		{
			name: "nothing configured",
			setup: func(r *Registry) {
				r.Register(&fakeProvider{name: "brevo"})
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			tt.setup(r)
			p, err := r.GetPrimary()
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetPrimary() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Name() != tt.want {
				t.Errorf("GetPrimary() = %s, want %s", p.Name(), tt.want)
			}
			if r.HasConfigured() == tt.wantErr {
				t.Errorf("HasConfigured() = %v", r.HasConfigured())
			}
		})
	}
}

func TestRegistry_SetUnknown(t *testing.T) {
	r := NewRegistry()
	if err := r.SetPrimary("ses"); err == nil {
		t.Error("SetPrimary() of unregistered provider should fail")
	}
	if err := r.SetFallback("ses"); err == nil {
		t.Error("SetFallback() of unregistered provider should fail")
	}
}

func TestRegistry_SendFallsBack(t *testing.T) {
	primaryErr := errors.New("brevo down")
	primary := &fakeProvider{name: "brevo", configured: true, err: primaryErr}
	fallback := &fakeProvider{name: "smtp", configured: true}

	r := NewRegistry()
	r.Register(primary)
	r.Register(fallback)
	r.SetPrimary("brevo")
	r.SetFallback("smtp")

	if err := r.Send(context.Background(), &EmailRequest{To: []string{"a@example.com"}}); err != nil {
		t.Fatalf("Send() error = %v, want nil via fallback", err)
	}
	if len(primary.sent) != 1 || len(fallback.sent) != 1 {
		t.Errorf("sent primary=%d fallback=%d, want 1 each", len(primary.sent), len(fallback.sent))
	}

	fallback.err = errors.New("smtp down")
	if err := r.Send(context.Background(), &EmailRequest{}); !errors.Is(err, primaryErr) {
		t.Errorf("Send() error = %v, want original primary error", err)
	}
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeProvider{name: "brevo"})
	r.Register(&fakeProvider{name: "smtp"})
	r.Register(&fakeProvider{name: "brevo"})

	got := r.List()
	if len(got) != 2 || got[0] != "brevo" || got[1] != "smtp" {
		t.Errorf("List() = %v, want [brevo smtp]", got)
	}
}

func TestBrevoProvider_Send(t *testing.T) {
	var gotKey string
	var got brevoRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"messageId":"<m1@brevo>"}`))
	}))
	defer srv.Close()

	p := NewBrevoProvider("xkeysib-test", 5*time.Second)
	p.endpoint = srv.URL

	err := p.Send(context.Background(), &EmailRequest{
		From:     "alerts@example.com",
		FromName: "HSR Monitor",
		To:       []string{"a@example.com", "b@example.com"},
		Subject:  "HSR Monitor: 2 new early termination notices",
		HTML:     "<p>hi</p>",
		Body:     "hi",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if gotKey != "xkeysib-test" {
		t.Errorf("api-key header = %q", gotKey)
	}
	if got.Sender.Email != "alerts@example.com" || got.Sender.Name != "HSR Monitor" {
		t.Errorf("sender = %+v", got.Sender)
	}
	if len(got.To) != 2 || got.To[1].Email != "b@example.com" {
		t.Errorf("to = %+v", got.To)
	}
	if got.HTMLContent != "<p>hi</p>" || got.TextContent != "hi" {
		t.Errorf("content = %q / %q", got.HTMLContent, got.TextContent)
	}
}

func TestBrevoProvider_SendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewBrevoProvider("key", time.Second)
	p.endpoint = srv.URL
	err := p.Send(context.Background(), &EmailRequest{To: []string{"a@example.com"}})
	var statusErr *retry.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 503 {
		t.Errorf("Send() error = %v, want StatusError 503", err)
	}

	if err := p.Send(context.Background(), &EmailRequest{}); err == nil {
		t.Error("Send() without recipients should fail")
	}

	unconfigured := NewBrevoProvider("", time.Second)
	if unconfigured.IsConfigured() {
		t.Error("IsConfigured() = true without API key")
	}
	if err := unconfigured.Send(context.Background(), &EmailRequest{To: []string{"a@example.com"}}); err == nil {
		t.Error("Send() without API key should fail")
	}
}

func TestResendProvider_Unconfigured(t *testing.T) {
	p := NewResendProvider("")
	if p.IsConfigured() {
		t.Error("IsConfigured() = true without API key")
	}
	if err := p.Send(context.Background(), &EmailRequest{To: []string{"a@example.com"}}); err == nil {
		t.Error("Send() should fail when unconfigured")
	}
	if !NewResendProvider("re_test").IsConfigured() {
		t.Error("IsConfigured() = false with API key")
	}
}

func TestSMTPProvider_Unconfigured(t *testing.T) {
	p := NewSMTPProvider(SMTPConfig{}, time.Second)
	if p.IsConfigured() {
		t.Error("IsConfigured() = true without host")
	}

	bad := NewSMTPProvider(SMTPConfig{Host: "localhost", Port: "smtp"}, time.Second)
	if err := bad.Send(context.Background(), &EmailRequest{To: []string{"a@example.com"}}); err == nil ||
		!strings.Contains(err.Error(), "invalid SMTP port") {
		t.Errorf("Send() error = %v, want invalid port", err)
	}
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := string(buildMessage("HSR Monitor <alerts@example.com>", []string{"a@example.com", "b@example.com"},
		"HSR Monitor: 1 new early termination notice", "plain", "<p>html</p>", now))

	for _, want := range []string{
		"From: HSR Monitor <alerts@example.com>\r\n",
		"To: a@example.com, b@example.com\r\n",
		"Subject: HSR Monitor: 1 new early termination notice\r\n",
		"multipart/alternative",
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Type: text/html; charset=UTF-8",
		"<p>html</p>",
		"--" + mimeBoundary + "--",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}

	plain := string(buildMessage("a@example.com", []string{"b@example.com"}, "s", "just text", "", now))
	if strings.Contains(plain, "multipart") || !strings.HasSuffix(plain, "just text") {
		t.Errorf("plain message = %q", plain)
	}
}
