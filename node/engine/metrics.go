package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts executed operations by type and outcome.
type Metrics struct {
	registry *prometheus.Registry
	ops      *prometheus.CounterVec
}

// NewMetrics creates the engine's metrics on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nativeswap",
			Name:      "operations_total",
			Help:      "Operations executed, by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	m.registry.MustRegister(m.ops)
	return m
}

// Registry returns the prometheus registry for the HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observe(opType string, success bool) {
	outcome := "ok"
	if !success {
		outcome = "failed"
	}
	m.ops.WithLabelValues(opType, outcome).Inc()
}
