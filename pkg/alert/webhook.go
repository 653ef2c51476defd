package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
)

// Webhook posts a single text blob to a chat webhook. The URL comes from
// ALERT_WEBHOOK_URL; unset means the channel no-ops.
type Webhook struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhook creates the webhook channel from the environment.
func NewWebhook(logger *zap.Logger) *Webhook {
	return &Webhook{
		url:    config.Getenv("ALERT_WEBHOOK_URL", ""),
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger.Named("alert-webhook"),
	}
}

// Name returns the channel name.
func (w *Webhook) Name() string { return "webhook" }

// Notify posts the alert text, or silently no-ops when unconfigured.
func (w *Webhook) Notify(ctx context.Context, subject, body string) error {
	if w.url == "" {
		w.logger.Debug("Webhook alerting unconfigured, skipping")
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"text": fmt.Sprintf(":rotating_light: %s: %s", subject, body),
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
