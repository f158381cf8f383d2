package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

// SMTPProvider implements email sending over SMTP. Port 465 uses implicit
// TLS, port 587 uses STARTTLS, anything else is plain (local relays).
type SMTPProvider struct {
	cfg     SMTPConfig
	timeout time.Duration
	now     func() time.Time
}

// NewSMTPProvider creates an SMTP provider. An empty host leaves it unconfigured.
func NewSMTPProvider(cfg SMTPConfig, timeout time.Duration) *SMTPProvider {
	return &SMTPProvider{cfg: cfg, timeout: timeout, now: time.Now}
}

// Name returns the provider name.
func (p *SMTPProvider) Name() string {
	return "smtp"
}

// IsConfigured returns true if an SMTP host is set.
func (p *SMTPProvider) IsConfigured() bool {
	return p.cfg.Host != ""
}

// Send sends an email over SMTP.
func (p *SMTPProvider) Send(ctx context.Context, req *EmailRequest) error {
	if !p.IsConfigured() {
		return fmt.Errorf("SMTP host not set")
	}
	if len(req.To) == 0 {
		return fmt.Errorf("email recipient is required")
	}

	port, err := strconv.Atoi(p.cfg.Port)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %s", p.cfg.Port)
	}

	// Gmail requires the envelope sender to match the authenticated user.
	envelopeFrom := req.From
	if strings.Contains(p.cfg.Host, "gmail.com") && p.cfg.User != "" {
		envelopeFrom = p.cfg.User
	}

	msg := buildMessage(formatFrom(req.FromName, req.From), req.To, req.Subject, req.Body, req.HTML, p.now())
	addr := net.JoinHostPort(p.cfg.Host, p.cfg.Port)

	if err := p.deliver(ctx, addr, port, envelopeFrom, req.To, msg); err != nil {
		slog.Error("Failed to send email",
			"error", err,
			"smtp_server", addr,
			"recipients", len(req.To),
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("Email sent via SMTP",
		"smtp_server", addr,
		"recipients", len(req.To),
		"subject", req.Subject,
	)
	return nil
}

func (p *SMTPProvider) deliver(ctx context.Context, addr string, port int, from string, to []string, msg []byte) error {
	dialer := &net.Dialer{Timeout: p.timeout}

	var conn net.Conn
	var err error
	if port == 465 {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: p.cfg.Host})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()
	if p.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(p.timeout))
	}

	client, err := smtp.NewClient(conn, p.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: p.cfg.Host}); err != nil {
				return fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}

	if p.cfg.User != "" && p.cfg.Password != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", p.cfg.User, p.cfg.Password, p.cfg.Host)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("SMTP authentication failed: %w", err)
			}
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender %s: %w", from, err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("failed to write email data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := client.Quit(); err != nil {
		slog.Warn("Error during SMTP QUIT", "error", err)
	}
	return nil
}

const mimeBoundary = "hsr-monitor-alternative"

// buildMessage builds an RFC 5322 message with text and HTML alternatives.
func buildMessage(from string, to []string, subject, text, html string, now time.Time) []byte {
	var msg bytes.Buffer

	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", now.Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")

	if html == "" {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		msg.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
		msg.WriteString(text)
		return msg.Bytes()
	}

	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mimeBoundary)
	if text != "" {
		fmt.Fprintf(&msg, "--%s\r\n", mimeBoundary)
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		msg.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
		msg.WriteString(text)
		msg.WriteString("\r\n")
	}
	fmt.Fprintf(&msg, "--%s\r\n", mimeBoundary)
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	msg.WriteString(html)
	fmt.Fprintf(&msg, "\r\n--%s--\r\n", mimeBoundary)
	return msg.Bytes()
}
