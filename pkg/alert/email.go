// Package alert implements best-effort operator notification. Channels
// silently no-op when their credentials are unconfigured, and the
// dispatcher guarantees a delivery failure never escalates into a
// pipeline failure.
package alert

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
)

// Notifier is a single outbound alert channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, subject, body string) error
}

// EmailConfig holds SMTP settings, loaded from the environment.
type EmailConfig struct {
	Host string
	Port int
	User string
	Pass string
	To   string
}

// LoadEmailConfig reads SMTP settings from SMTP_HOST, SMTP_PORT,
// SMTP_USER, SMTP_PASS and ALERT_EMAIL_TO.
func LoadEmailConfig() EmailConfig {
	return EmailConfig{
		Host: config.Getenv("SMTP_HOST", ""),
		Port: config.GetenvInt("SMTP_PORT", 587),
		User: config.Getenv("SMTP_USER", ""),
		Pass: config.Getenv("SMTP_PASS", ""),
		To:   config.Getenv("ALERT_EMAIL_TO", ""),
	}
}

// Configured reports whether every SMTP setting is present.
func (c EmailConfig) Configured() bool {
	return c.Host != "" && c.User != "" && c.Pass != "" && c.To != ""
}

// Email sends plain-text alert mail over SMTP with STARTTLS.
type Email struct {
	cfg    EmailConfig
	logger *zap.Logger
}

// NewEmail creates the email channel from the environment.
func NewEmail(logger *zap.Logger) *Email {
	return &Email{cfg: LoadEmailConfig(), logger: logger.Named("alert-email")}
}

// Name returns the channel name.
func (e *Email) Name() string { return "email" }

// Notify sends the alert, or silently no-ops when unconfigured.
func (e *Email) Notify(_ context.Context, subject, body string) error {
	if !e.cfg.Configured() {
		e.logger.Debug("Email alerting unconfigured, skipping")
		return nil
	}

	host := e.cfg.Host
	addr := fmt.Sprintf("%s:%d", host, e.cfg.Port)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		e.cfg.User, e.cfg.To, subject, body)

	auth := smtp.PlainAuth("", e.cfg.User, e.cfg.Pass, host)
	if err := smtp.SendMail(addr, auth, e.cfg.User, []string{e.cfg.To}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send alert mail: %w", err)
	}

	e.logger.Info("Sent alert email", zap.String("to", e.cfg.To), zap.String("subject", subject))
	return nil
}
