package sink

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evergreen-health/vitals-ingress/pkg/config"
	"github.com/evergreen-health/vitals-ingress/pkg/table"
)

func pushTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New()
	cols := []*table.Column{
		{Name: "patient_key", Kind: table.String, Values: []table.Value{table.NewString("abc123")}},
		{Name: "dob_year", Kind: table.Int, Values: []table.Value{table.NewInt(1990)}},
		{Name: "heart_rate", Kind: table.Float, Values: []table.Value{table.Missing(table.Float)}},
	}
	for _, c := range cols {
		require.NoError(t, tbl.SetColumn(c))
	}
	return tbl
}

func retryConfig() config.RetryConfig {
	return config.RetryConfig{Attempts: 3, DelayMS: 1}
}

func TestPushWritePayload(t *testing.T) {
	var payload map[string][]map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPush(srv.URL, retryConfig(), zap.NewNop())
	require.NoError(t, p.Write(context.Background(), pushTable(t)))

	rows := payload["rows"]
	require.Len(t, rows, 1)
	assert.Equal(t, "abc123", rows[0]["patient_key"])
	assert.Equal(t, float64(1990), rows[0]["dob_year"])
	assert.Nil(t, rows[0]["heart_rate"], "missing values serialize as null")
}

func TestPushRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPush(srv.URL, retryConfig(), zap.NewNop())
	require.NoError(t, p.Write(context.Background(), pushTable(t)))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPushDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewPush(srv.URL, retryConfig(), zap.NewNop())
	err := p.Write(context.Background(), pushTable(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx must not be retried")
}

func TestPushGivesUpAfterAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewPush(srv.URL, retryConfig(), zap.NewNop())
	err := p.Write(context.Background(), pushTable(t))
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
