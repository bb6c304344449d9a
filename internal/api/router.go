package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/statuspush/statuspush/internal/api/handler"
	apimw "github.com/statuspush/statuspush/internal/api/middleware"
	"github.com/statuspush/statuspush/internal/batch"
	"github.com/statuspush/statuspush/internal/ratelimit"
	"github.com/statuspush/statuspush/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
// Non-POST requests to the events endpoint get a 405 from chi's method routing.
func NewRouter(
	svc *service.IngestService,
	batcher *batch.Batcher,
	limiter *ratelimit.Limiter,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	eh := handler.NewEventHandler(svc, logger)
	dh := handler.NewDeliveryHandler(svc, logger)
	mh := handler.NewMetricsHandler(batcher, limiter)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/events", eh.Create)
		r.Get("/deliveries", dh.List)

		// JSON pipeline snapshot
		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
