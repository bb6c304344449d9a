package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/statuspush/statuspush/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	EventsAccepted  *prometheus.CounterVec
	EventsDelivered *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	DeliveryLatency *prometheus.HistogramVec
	BatchFlushSize  prometheus.Histogram
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct. bucketCount feeds a gauge with the
// number of live rate-limit buckets.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer, bucketCount func() float64) *Metrics {
	m := &Metrics{
		EventsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_accepted_total",
			Help: "Total number of events accepted into the pipeline.",
		}, []string{"event"}),

		EventsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_delivered_total",
			Help: "Total number of events the provider acknowledged.",
		}, []string{"channel"}),

		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Total number of dropped delivery attempts by reason.",
		}, []string{"reason"}),

		DeliveryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "event_delivery_seconds",
			Help:    "Latency of a single provider trigger call.",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"}),

		BatchFlushSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batch_flush_size",
			Help:    "Number of payloads per batch flush.",
			Buckets: []float64{1, 2, 3, 5, 8, 10, 15, 20},
		}),
	}

	reg.MustRegister(
		m.EventsAccepted,
		m.EventsDelivered,
		m.EventsDropped,
		m.DeliveryLatency,
		m.BatchFlushSize,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rate_limit_buckets",
			Help: "Current number of live rate-limit buckets.",
		}, bucketCount),
	)

	return m
}

// DispatchHooks returns the outcome callbacks expected by dispatch.Hooks.
// Centralises the prometheus observation calls so the dispatcher stays
// metrics-agnostic.
func (m *Metrics) DispatchHooks() (
	onDelivered func(domain.Payload, time.Duration),
	onDropped func(domain.Payload, string),
) {
	onDelivered = func(p domain.Payload, latency time.Duration) {
		m.EventsDelivered.WithLabelValues(p.Channel).Inc()
		m.DeliveryLatency.WithLabelValues(p.Channel).Observe(latency.Seconds())
	}
	onDropped = func(_ domain.Payload, reason string) {
		m.EventsDropped.WithLabelValues(reason).Inc()
	}
	return
}

// AcceptedHook returns the callback the ingest service fires per accepted payload.
func (m *Metrics) AcceptedHook() func(domain.Payload) {
	return func(p domain.Payload) {
		m.EventsAccepted.WithLabelValues(p.EventKind).Inc()
	}
}

// FlushHook returns the callback the batcher fires per flush.
func (m *Metrics) FlushHook() func(int) {
	return func(size int) {
		m.BatchFlushSize.Observe(float64(size))
	}
}
