// Package metrics holds the Prometheus collectors the server exports.
//
// A nil *Metrics is valid and records nothing, so services can be built in
// tests without a registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application's collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	ratingsRecorded    prometheus.Counter
	directorySearches  *prometheus.CounterVec
	storeErrors        *prometheus.CounterVec
	connectivityStatus prometheus.Gauge
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ratingsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sharide",
			Name:      "ratings_recorded_total",
			Help:      "Ratings whose aggregate update committed.",
		}),
		directorySearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharide",
			Name:      "directory_searches_total",
			Help:      "Directory searches by inferred rule.",
		}, []string{"rule"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharide",
			Name:      "store_errors_total",
			Help:      "Document store failures by operation.",
		}, []string{"operation"}),
		connectivityStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sharide",
			Name:      "connectivity_connected",
			Help:      "1 when the document store is reachable, 0 otherwise.",
		}),
	}

	m.registry.MustRegister(
		m.ratingsRecorded,
		m.directorySearches,
		m.storeErrors,
		m.connectivityStatus,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) RatingRecorded() {
	if m == nil {
		return
	}
	m.ratingsRecorded.Inc()
}

func (m *Metrics) DirectorySearch(rule string) {
	if m == nil {
		return
	}
	m.directorySearches.WithLabelValues(rule).Inc()
}

func (m *Metrics) StoreError(operation string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(operation).Inc()
}

// SetConnected records the connectivity state.
func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connectivityStatus.Set(1)
		return
	}
	m.connectivityStatus.Set(0)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
