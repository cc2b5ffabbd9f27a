package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Collect(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/tickets", http.MethodGet, 200, 5*time.Millisecond)
	m.ObserveHTTP("", http.MethodGet, 404, time.Millisecond)
	m.IncDBRetry("query")
	m.IncDBRetry("query")
	m.SetDatabaseConnected(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/tickets", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("unmatched", "GET", "404")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.dbRetries.WithLabelValues("query")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.databaseConnected))

	m.SetDatabaseConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.databaseConnected))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncDBRetry("tx")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `helpdesk_db_retries_total{op="tx"} 1`)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("/", http.MethodGet, 200, time.Millisecond)
		m.IncDBRetry("query")
		m.SetDatabaseConnected(true)
	})
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
