package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/metrics"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/middleware"
)

type echoHandler struct{}

func (echoHandler) Register(r chi.Router) {
	r.Get("/echo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(middleware.GetRequestID(r.Context())))
	})
}

func newTestRouter(checks map[string]HealthCheck) (http.Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewRouter(Config{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:  metrics.NewWithRegistry(reg),
		Gatherer: reg,
		Checks:   checks,
		Handlers: []Registrar{echoHandler{}},
	}), reg
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestOperationalEndpoints(t *testing.T) {
	router, _ := newTestRouter(nil)

	tests := []struct {
		path    string
		message string
	}{
		{"/health", "healthy"},
		{"/health/ready", "ready"},
		{"/v1/ping", "pong"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := serve(router, http.MethodGet, tt.path)
			require.Equal(t, http.StatusOK, rr.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body["message"])
		})
	}
}

func TestHandlersMountUnderPrefix(t *testing.T) {
	router, _ := newTestRouter(nil)

	rr := serve(router, http.MethodGet, "/v1/echo")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Body.String())
	assert.Equal(t, rr.Body.String(), rr.Header().Get(middleware.RequestIDHeader))

	rr = serve(router, http.MethodGet, "/echo")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "not_found")
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	router, _ := newTestRouter(map[string]HealthCheck{
		"redis":    func(context.Context) error { return errors.New("connection refused") },
		"postgres": func(context.Context) error { return nil },
	})

	rr := serve(router, http.MethodGet, "/health/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Error)
	assert.Equal(t, map[string]string{"redis": "unavailable"}, body.Details)
}

func TestMetricsEndpointExposesLatency(t *testing.T) {
	router, _ := newTestRouter(nil)
	serve(router, http.MethodGet, "/v1/ping")

	rr := serve(router, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "odyssey_http_request_duration_seconds"))
	assert.Contains(t, rr.Body.String(), `route="/v1/ping"`)
}
