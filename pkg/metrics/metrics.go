// Package metrics exposes Prometheus instrumentation for routed invocations.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morezero/openstack-gateway/pkg/gateway"
)

// Metric names.
const (
	InvocationsTotal   = "openstack_gateway_invocations_total"
	InvocationDuration = "openstack_gateway_invocation_duration_seconds"
)

// Collector records invocations on its own registry.
type Collector struct {
	registry *prometheus.Registry

	// invocations counts routed calls by kind, family and outcome
	invocations *prometheus.CounterVec

	// duration tracks end-to-end latency including the identity round trip
	duration *prometheus.HistogramVec
}

// NewCollector creates a Collector with a fresh registry that also carries
// the Go runtime and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: InvocationsTotal,
				Help: "Total gateway invocations by tool kind, service family and outcome",
			},
			[]string{"kind", "family", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    InvocationDuration,
				Help:    "Gateway invocation duration in seconds by service family and verb",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"family", "verb"},
		),
	}
}

// Observe implements gateway.Observer.
func (c *Collector) Observe(_ context.Context, inv gateway.Invocation) {
	family := string(inv.Family)
	if family == "" {
		family = "unknown"
	}
	c.invocations.WithLabelValues(string(inv.Kind), family, inv.Outcome()).Inc()

	verb := string(inv.Verb)
	if verb == "" {
		verb = "unknown"
	}
	c.duration.WithLabelValues(family, verb).Observe(inv.Duration.Seconds())
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

var _ gateway.Observer = (*Collector)(nil)
