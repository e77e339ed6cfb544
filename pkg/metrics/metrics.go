// Package metrics holds the gateway's prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vecgate"

// Outcome labels for Requests.
const (
	OutcomeOK            = "ok"
	OutcomeInvalid       = "invalid"
	OutcomeStorageFailed = "storage_error"
)

// Metrics groups the gateway collectors on a private registry so several
// gateways (and tests) can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	// Requests counts add and query requests by route and outcome.
	Requests *prometheus.CounterVec

	// Duration tracks request latency by route.
	Duration *prometheus.HistogramVec

	// Chunks counts chunk submissions to the backing index.
	Chunks prometheus.Counter

	// Entries counts entries accepted by the backing index.
	Entries prometheus.Counter

	// Collections is the number of collections known to the registry.
	Collections prometheus.Gauge
}

// New creates the collectors and registers them with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of gateway requests by route and outcome",
		}, []string{"route", "outcome"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time taken to process gateway requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Chunks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_submitted_total",
			Help:      "Total number of chunks submitted to the backing index",
		}),
		Entries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_added_total",
			Help:      "Total number of entries accepted by the backing index",
		}),
		Collections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collections",
			Help:      "Current number of collections held by the registry",
		}),
	}
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(route, outcome string, start time.Time) {
	m.Requests.WithLabelValues(route, outcome).Inc()
	m.Duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
