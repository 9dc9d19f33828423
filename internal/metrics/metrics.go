// Package metrics holds the Prometheus metrics the daemon exposes on /metrics.
//
// Metrics are registered on a Registry owned by the Metrics value rather than
// the global default registry, so tests can build as many instances as they
// like without "duplicate metrics collector registration" panics.
//
// Every Record method is safe on a nil *Metrics. The terminal picker and most
// tests run without metrics and simply pass nil.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "snippet_picker"

// Metrics is the set of collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	Operations       *prometheus.CounterVec
	Deliveries       *prometheus.CounterVec
	DeliveryDuration prometheus.Histogram
	RelayConnections prometheus.Gauge
	RelayMessages    *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// resource: snippet | mode; op: create, move_up, ...; result: ok, not_found, ...
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Repository operations by resource, operation and result.",
		}, []string{"resource", "op", "result"}),

		// target: element | native | relay
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Snippet deliveries by target kind and result.",
		}, []string{"target", "result"}),

		DeliveryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time from clipboard write to the end of a delivery.",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.5, 1, 2},
		}),

		RelayConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_connections_active",
			Help:      "Overlays currently connected to the websocket relay.",
		}),

		// direction: inbound | outbound
		RelayMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_messages_total",
			Help:      "Relay messages by type and direction.",
		}, []string{"type", "direction"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordOperation(resource, op, result string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(resource, op, result).Inc()
}

func (m *Metrics) RecordDelivery(target, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(target, result).Inc()
	m.DeliveryDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RelayConnected() {
	if m == nil {
		return
	}
	m.RelayConnections.Inc()
}

func (m *Metrics) RelayDisconnected() {
	if m == nil {
		return
	}
	m.RelayConnections.Dec()
}

func (m *Metrics) RecordRelayMessage(msgType, direction string) {
	if m == nil {
		return
	}
	m.RelayMessages.WithLabelValues(msgType, direction).Inc()
}
