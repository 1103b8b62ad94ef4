// Package metrics exposes Floodgate's Prometheus metrics over HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns the Prometheus registry that Floodgate components
// register their metrics against. Using a dedicated registry instead of
// the package-global default keeps the exposition surface explicit and
// makes tests hermetic.
type Collector struct {
	registry *prometheus.Registry
}

// NewCollector creates a collector with runtime and process collectors
// pre-registered.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Collector{registry: registry}
}

// Registry returns the underlying Prometheus registry. Components pass
// it to their metric constructors so everything they register ends up
// on the same exposition endpoint.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
