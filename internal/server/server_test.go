package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/dpd/internal/server"
	"github.com/tournevent/dpd/internal/telemetry"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, ready bool) (*server.Server, *telemetry.Metrics) {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	return server.New(server.Config{Addr: "127.0.0.1:0"}, reg, func() bool { return ready }, otelzap.New(zap.NewNop())), metrics
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, true)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_Health_NotReady(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	srv, metrics := newTestServer(t, true)
	metrics.RecordAttempt("generateSpedLabelsV4", "success", 15*time.Millisecond)
	metrics.RecordRetry("generateSpedLabelsV4")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `dpd_procedure_attempts_total{outcome="success",procedure="generateSpedLabelsV4"} 1`)
	assert.Contains(t, body, `dpd_procedure_retries_total{procedure="generateSpedLabelsV4"} 1`)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	srv, _ := newTestServer(t, true)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
