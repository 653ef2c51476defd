package alert

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestEmailUnconfiguredNoOps(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_USER", "")
	t.Setenv("SMTP_PASS", "")
	t.Setenv("ALERT_EMAIL_TO", "")

	e := NewEmail(zap.NewNop())
	assert.NoError(t, e.Notify(context.Background(), "subject", "body"))
}

func TestEmailConfigured(t *testing.T) {
	cases := []struct {
		cfg  EmailConfig
		want bool
	}{
		{EmailConfig{}, false},
		{EmailConfig{Host: "smtp.example.com"}, false},
		{EmailConfig{Host: "h", User: "u", Pass: "p", To: "ops@example.com"}, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.cfg.Configured())
	}
}

func TestWebhookUnconfiguredNoOps(t *testing.T) {
	t.Setenv("ALERT_WEBHOOK_URL", "")

	w := NewWebhook(zap.NewNop())
	assert.NoError(t, w.Notify(context.Background(), "subject", "body"))
}

func TestWebhookPostsPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Setenv("ALERT_WEBHOOK_URL", srv.URL)
	w := NewWebhook(zap.NewNop())
	require.NoError(t, w.Notify(context.Background(), "ETL Failure", "File: x.csv"))

	assert.Contains(t, got["text"], "ETL Failure")
	assert.Contains(t, got["text"], "File: x.csv")
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	t.Setenv("ALERT_WEBHOOK_URL", srv.URL)
	w := NewWebhook(zap.NewNop())

	err := w.Notify(context.Background(), "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

type stubNotifier struct {
	name  string
	err   error
	calls int
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Notify(context.Context, string, string) error {
	s.calls++
	return s.err
}

func TestDispatcherNotifiesAllAndSwallowsFailures(t *testing.T) {
	good := &stubNotifier{name: "good"}
	bad := &stubNotifier{name: "bad", err: errors.New("channel down")}
	alsoGood := &stubNotifier{name: "also-good"}

	d := NewDispatcher(zap.NewNop(), good, bad, alsoGood)
	d.Alert(context.Background(), "subject", "body")

	assert.Equal(t, 1, good.calls)
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, alsoGood.calls, "a failing channel must not stop the fan-out")
}

func TestDispatcherLogsAggregatedFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	email := &stubNotifier{name: "email", err: errors.New("smtp down")}
	webhook := &stubNotifier{name: "webhook", err: errors.New("hook 502")}

	d := NewDispatcher(zap.New(core), email, webhook)
	d.Alert(context.Background(), "subject", "body")

	entries := logs.FilterMessage("Alert delivery incomplete").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, int64(2), fields["failedChannels"])

	aggregate := fields["error"].(string)
	assert.Contains(t, aggregate, "email: smtp down")
	assert.Contains(t, aggregate, "webhook: hook 502")
}
