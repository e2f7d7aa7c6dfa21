package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loomkit/loom/pkg/diagnostics"
)

// Metrics holds the Prometheus collectors loom registers for itself: a
// gauge reflecting every component's current lifecycle state, a
// histogram of dispatch durations, and a counter of route matches.
// Mirrors the counter/gauge/histogram vocabulary of
// _examples/xraph-go-utils/metrics, expressed against the real
// client_golang API rather than that package's hand-rolled collectors.
type Metrics struct {
	ComponentState  *prometheus.GaugeVec
	DispatchSeconds *prometheus.HistogramVec
	RouteMatches    *prometheus.CounterVec
}

// NewMetrics builds and registers loom's collectors against reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests, multiple
// Engine instances in one process) or prometheus.DefaultRegisterer to
// expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ComponentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "loom",
			Subsystem: "lifecycle",
			Name:      "component_state",
			Help:      "Current lifecycle state of each registered component (0=created .. 6=failed).",
		}, []string{"component"}),
		DispatchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loom",
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Request dispatch latency from route match to response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		RouteMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loom",
			Subsystem: "dispatch",
			Name:      "route_matches_total",
			Help:      "Count of requests matched to a route, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.ComponentState, m.DispatchSeconds, m.RouteMatches)
	return m
}

// SetComponentState records a component's current lifecycle state as
// the gauge's numeric rank, so a dashboard can alert on state regressing
// or stalling at Failed.
func (m *Metrics) SetComponentState(name string, state diagnostics.ComponentState) {
	m.ComponentState.WithLabelValues(name).Set(float64(state))
}

// ObserveDispatch records one completed dispatch's latency.
func (m *Metrics) ObserveDispatch(method, route, status string, seconds float64) {
	m.DispatchSeconds.WithLabelValues(method, route, status).Observe(seconds)
}

// RecordRouteOutcome increments the route-match counter for one outcome
// ("matched", "not_found", "method_not_allowed").
func (m *Metrics) RecordRouteOutcome(outcome string) {
	m.RouteMatches.WithLabelValues(outcome).Inc()
}
