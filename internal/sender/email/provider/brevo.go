package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"hsr-monitor/internal/sender/retry"
)

// DefaultBrevoURL is the Brevo transactional email endpoint.
const DefaultBrevoURL = "https://api.brevo.com/v3/smtp/email"

// BrevoProvider implements email sending via the Brevo transactional API.
type BrevoProvider struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewBrevoProvider creates a Brevo provider. An empty apiKey leaves it unconfigured.
func NewBrevoProvider(apiKey string, timeout time.Duration) *BrevoProvider {
	return &BrevoProvider{
		apiKey:     apiKey,
		endpoint:   DefaultBrevoURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoRequest struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent,omitempty"`
	TextContent string         `json:"textContent,omitempty"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
}

// Name returns the provider name.
func (p *BrevoProvider) Name() string {
	return "brevo"
}

// IsConfigured returns true if an API key is set.
func (p *BrevoProvider) IsConfigured() bool {
	return p.apiKey != ""
}

// Send sends an email via the Brevo API.
func (p *BrevoProvider) Send(ctx context.Context, req *EmailRequest) error {
	if !p.IsConfigured() {
		return fmt.Errorf("Brevo API key not set")
	}
	if len(req.To) == 0 {
		return fmt.Errorf("email recipient is required")
	}

	body := brevoRequest{
		Sender:      brevoAddress{Name: req.FromName, Email: req.From},
		Subject:     req.Subject,
		HTMLContent: req.HTML,
		TextContent: req.Body,
	}
	for _, to := range req.To {
		body.To = append(body.To, brevoAddress{Email: to})
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal Brevo payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("Brevo send failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("Brevo API returned error status",
			"status_code", resp.StatusCode,
			"body", string(respBody),
		)
		return &retry.StatusError{Service: "brevo", StatusCode: resp.StatusCode}
	}

	var decoded brevoResponse
	_ = json.Unmarshal(respBody, &decoded)

	slog.Info("Email sent via Brevo",
		"message_id", decoded.MessageID,
		"recipients", len(req.To),
		"subject", req.Subject,
	)
	return nil
}
