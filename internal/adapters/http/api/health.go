package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/pkg/metrics"
)

// Pinger checks the backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	store   Pinger
	timeout time.Duration
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store Pinger, timeout time.Duration) *HealthHandler {
	return &HealthHandler{
		store:   store,
		timeout: timeout,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Time   string `json:"time"`
}

// HandleHealth handles GET /healthz. With format=metrics or a Prometheus
// Accept header it serves the metrics exposition instead.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	accept := r.Header.Get("Accept")
	if r.URL.Query().Get("format") == "metrics" || strings.Contains(accept, "application/openmetrics-text") {
		h.metrics.ServeHTTP(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	err := h.store.Ping(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		err = apperr.Wrap(apperr.ErrTimeout, "api.healthz", err)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Store:  "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// MetricsHandler serves the service registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
