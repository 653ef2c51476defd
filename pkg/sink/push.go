package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/retry"
	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

// Push posts the batch as `{"rows": [...]}` to a configured endpoint.
// 5xx responses and transport failures are transient and retried with
// exponential backoff; any other non-2xx status fails immediately.
type Push struct {
	url      string
	client   *http.Client
	attempts int
	delay    time.Duration
	logger   *zap.Logger
}

// NewPush creates the push sink.
func NewPush(url string, rc config.RetryConfig, logger *zap.Logger) *Push {
	return &Push{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		attempts: rc.Attempts,
		delay:    rc.Delay(),
		logger:   logger.Named("push-sink"),
	}
}

// Name identifies the sink.
func (p *Push) Name() string { return "push" }

// Write posts every row to the endpoint.
func (p *Push) Write(ctx context.Context, t *table.Table) error {
	rows := make([]map[string]interface{}, t.NumRows())
	for i := range rows {
		rows[i] = jsonRow(t, i)
	}

	body, err := json.Marshal(map[string]interface{}{"rows": rows})
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	err = retry.Do(ctx, p.attempts, p.delay, p.logger, func(ctx context.Context) error {
		return p.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("push sink failed: %w", err)
	}

	p.logger.Info("Pushed rows to endpoint", zap.Int("rows", len(rows)))
	return nil
}

func (p *Push) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return retry.Transient(fmt.Errorf("push request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode >= 500:
		return retry.Transient(fmt.Errorf("push endpoint returned status %d", resp.StatusCode))
	default:
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
}

func jsonRow(t *table.Table, i int) map[string]interface{} {
	row := make(map[string]interface{}, t.NumCols())
	for _, c := range t.Columns() {
		v := c.Values[i]
		if !v.Valid() {
			row[c.Name] = nil
			continue
		}
		switch c.Kind {
		case table.Int:
			n, _ := v.Int()
			row[c.Name] = n
		case table.Float:
			f, _ := v.Float()
			row[c.Name] = f
		default:
			row[c.Name] = v.Text()
		}
	}
	return row
}
