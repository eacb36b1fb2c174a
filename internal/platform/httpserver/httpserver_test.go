package httpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treasury/internal/platform/config"
	"treasury/internal/platform/metrics"
	"treasury/pkg/platform/middleware/request"
)

func newTestRouter(t *testing.T) (chi.Router, *metrics.Metrics) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(logger, m, reg), m
}

func TestRouterHealthz(t *testing.T) {
	r, m := newTestRouter(t)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(request.HeaderRequestID))
	assert.InDelta(t, 1, promtest.ToFloat64(m.RequestsTotal.WithLabelValues("/healthz", "GET", "200")), 0)
}

func TestRouterRecoversPanics(t *testing.T) {
	r, _ := newTestRouter(t)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "internal_error")
}

func TestRouterExposesMetrics(t *testing.T) {
	r, _ := newTestRouter(t)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "treasury_http_requests_total")
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := New(config.Server{Addr: "127.0.0.1:0", ReadHeaderTimeout: time.Second}, http.NotFoundHandler())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, srv, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
