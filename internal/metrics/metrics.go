package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mediahub/library-notifier/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	ItemsQueued     prometheus.Counter
	ItemsDropped    *prometheus.CounterVec
	Dispatched      *prometheus.CounterVec
	DispatchLatency *prometheus.HistogramVec
}

// New registers all instruments with the given registerer, plus a gauge fed
// by pendingLen so the queue depth is visible without polling an endpoint.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer, pendingLen func() int) *Metrics {
	m := &Metrics{
		ItemsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "library_items_queued_total",
			Help: "Total number of items accepted into the pending-notification queue.",
		}),

		ItemsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "library_items_dropped_total",
			Help: "Total number of pending items dropped without notification, by reason.",
		}, []string{"reason"}),

		Dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Total number of item-added notifications handed to the dispatcher.",
		}, []string{"item_type"}),

		DispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_dispatch_seconds",
			Help:    "Latency from readiness detection to dispatcher completion.",
			Buckets: prometheus.DefBuckets,
		}, []string{"item_type"}),
	}

	reg.MustRegister(
		m.ItemsQueued,
		m.ItemsDropped,
		m.Dispatched,
		m.DispatchLatency,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "library_items_pending",
			Help: "Current number of items awaiting a ready notification.",
		}, func() float64 { return float64(pendingLen()) }),
	)

	return m
}

// ReconcilerHooks returns the callbacks expected by worker.Hooks.
// Centralises the prometheus observation calls so the reconciler stays
// import-free.
func (m *Metrics) ReconcilerHooks() (
	onDispatched func(domain.Kind, time.Duration),
	onDropped func(reason string),
) {
	onDispatched = func(kind domain.Kind, latency time.Duration) {
		m.Dispatched.WithLabelValues(string(kind)).Inc()
		m.DispatchLatency.WithLabelValues(string(kind)).Observe(latency.Seconds())
	}
	onDropped = func(reason string) {
		m.ItemsDropped.WithLabelValues(reason).Inc()
	}
	return
}

// EnqueueHook returns the callback the service fires when a new record
// enters the pending queue.
func (m *Metrics) EnqueueHook() func() {
	return func() { m.ItemsQueued.Inc() }
}
