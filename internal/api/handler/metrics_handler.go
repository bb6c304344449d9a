package handler

import (
	"net/http"

	"github.com/statuspush/statuspush/internal/batch"
	"github.com/statuspush/statuspush/internal/ratelimit"
)

// MetricsHandler serves a human-readable JSON pipeline snapshot.
// Raw Prometheus metrics (counters, histograms) are available at /metrics
// via promhttp.Handler and are separate from this endpoint.
type MetricsHandler struct {
	batcher *batch.Batcher
	limiter *ratelimit.Limiter
}

func NewMetricsHandler(batcher *batch.Batcher, limiter *ratelimit.Limiter) *MetricsHandler {
	return &MetricsHandler{batcher: batcher, limiter: limiter}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Real-time pipeline snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"pending_batches":    h.batcher.PendingKeys(),
		"rate_limit_buckets": h.limiter.Len(),
	})
}
