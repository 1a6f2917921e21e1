package handlers

import (
	"context"
	"net/http"

	"training-launcher/core/logger"
)

// MetricsSource renders metrics in Prometheus text format
type MetricsSource interface {
	GetPrometheusMetrics(ctx context.Context) (string, error)
}

// MetricsHandler exposes run counts and spend for scraping
type MetricsHandler struct {
	source MetricsSource
}

func NewMetricsHandler(source MetricsSource) *MetricsHandler {
	return &MetricsHandler{source: source}
}

// GetMetrics handles GET /metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	body, err := h.source.GetPrometheusMetrics(r.Context())
	if err != nil {
		logger.WithError(err).Error("Failed to render metrics")
		http.Error(w, "Failed to render metrics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Write([]byte(body))
}
