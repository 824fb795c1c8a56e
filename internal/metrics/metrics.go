// Package metrics exposes provider activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebroadwan/webauth/pkg/identity"
)

const namespace = "webauth"

// Metrics implements identity.Observer on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	cacheLookups *prometheus.CounterVec
	flows        *prometheus.CounterVec
	flowDuration *prometheus.HistogramVec
}

var _ identity.Observer = (*Metrics)(nil)

// New creates the collectors and registers them, with the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_cache_lookups_total",
			Help:      "Token cache lookups by result.",
		}, []string{"result"}),
		flows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flows_total",
			Help:      "Completed web auth flows by grant and outcome code.",
		}, []string{"grant", "code"}),
		flowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flow_duration_seconds",
			Help:      "Duration of web auth flows, including user interaction.",
			Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"grant"}),
	}

	m.registry.MustRegister(
		m.cacheLookups,
		m.flows,
		m.flowDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) FlowCompleted(grant identity.ResponseType, errCode string, elapsed time.Duration) {
	if errCode == "" {
		errCode = "ok"
	}
	m.flows.WithLabelValues(string(grant), errCode).Inc()
	m.flowDuration.WithLabelValues(string(grant)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
