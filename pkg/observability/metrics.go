// Package observability wires loop lifecycle hooks into Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loopkit/loopkit/pkg/system"
)

// Metrics holds the Prometheus collectors for one loop.
type Metrics struct {
	eventsApplied   *prometheus.CounterVec
	eventsDropped   prometheus.Counter
	reducerDuration prometheus.Histogram
	disposals       prometheus.Counter
}

// NewMetrics creates the collectors and registers them with the given
// registerer. The loop label distinguishes multiple loops in one process.
func NewMetrics(reg prometheus.Registerer, loop string) *Metrics {
	m := &Metrics{
		eventsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "loopkit_events_applied_total",
				Help:        "Total number of events applied by the loop",
				ConstLabels: prometheus.Labels{"loop": loop},
			},
			[]string{"kind"},
		),
		eventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "loopkit_events_dropped_total",
				Help:        "Events discarded because the loop was disposed",
				ConstLabels: prometheus.Labels{"loop": loop},
			},
		),
		reducerDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "loopkit_reducer_duration_seconds",
				Help:        "Duration of reducer applications",
				ConstLabels: prometheus.Labels{"loop": loop},
				Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
		),
		disposals: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "loopkit_disposals_total",
				Help:        "Number of times the loop was disposed (at most 1)",
				ConstLabels: prometheus.Labels{"loop": loop},
			},
		),
	}
	reg.MustRegister(m.eventsApplied, m.eventsDropped, m.reducerDuration, m.disposals)
	return m
}

// Hooks returns system hooks recording into these collectors. kindOf labels
// the applied-events counter; pass nil to label everything "event".
func Hooks[S, E any](m *Metrics, kindOf func(E) string) system.Hooks[S, E] {
	return system.Hooks[S, E]{
		OnEventApplied: func(t system.Transition[S, E], reducerTime time.Duration) {
			kind := "event"
			if kindOf != nil {
				kind = kindOf(t.Event)
			}
			m.eventsApplied.WithLabelValues(kind).Inc()
			m.reducerDuration.Observe(reducerTime.Seconds())
		},
		OnEventDropped: func() {
			m.eventsDropped.Inc()
		},
		OnDispose: func() {
			m.disposals.Inc()
		},
	}
}

// QueueGauge registers a gauge tracking the loop's queue depth via the
// system's QueueLen. Call after the system exists.
func QueueGauge[S, E any](reg prometheus.Registerer, loop string, sys *system.System[S, E]) {
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "loopkit_queue_depth",
			Help:        "Events waiting to be applied",
			ConstLabels: prometheus.Labels{"loop": loop},
		},
		func() float64 { return float64(sys.QueueLen()) },
	))
}
