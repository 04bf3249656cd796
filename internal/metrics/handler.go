package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a registry holding the state collector and the push
// counters.
func NewRegistry(c *Collector, counters *PushCounters) (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(c); err != nil {
		return nil, err
	}
	if counters != nil {
		if err := counters.Register(registry); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Handler serves reg on /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	}))
	return mux
}
