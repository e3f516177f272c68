// Package metrics records Prometheus metrics for secret lookups.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Operations observed by the duration histogram.
const (
	OpFetch        = "fetch"
	OpFetchBatch   = "fetch_batch"
	OpListVersions = "list_versions"
)

// Metrics holds the collectors for one registry.
type Metrics struct {
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	batchSize     *prometheus.HistogramVec
	gatherer      prometheus.Gatherer
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Init registers the collectors with the default Prometheus registry once and
// returns them. Later calls return the same instance.
func Init() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = newMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return defaultMetrics
}

// New registers a fresh set of collectors with reg.
func New(reg *prometheus.Registry) *Metrics {
	return newMetrics(reg, reg)
}

func newMetrics(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		fetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretsprovider_fetch_total",
				Help: "Secret lookups by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "secretsprovider_fetch_duration_seconds",
				Help:    "Duration of backend calls in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"provider", "operation"},
		),
		batchSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "secretsprovider_batch_size",
				Help:    "Number of names requested per native batch call",
				Buckets: prometheus.LinearBuckets(1, 5, 5),
			},
			[]string{"provider"},
		),
		gatherer: g,
	}
}

// RecordFetch counts one lookup.
func (m *Metrics) RecordFetch(provider, outcome string) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(provider, outcome).Inc()
}

// ObserveDuration records how long a backend call took.
func (m *Metrics) ObserveDuration(provider, operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// ObserveBatch records the number of names in a native batch call.
func (m *Metrics) ObserveBatch(provider string, size int) {
	if m == nil {
		return
	}
	m.batchSize.WithLabelValues(provider).Observe(float64(size))
}

// FetchTotal exposes the lookup counter.
func (m *Metrics) FetchTotal() *prometheus.CounterVec {
	return m.fetchTotal
}

// FetchDuration exposes the duration histogram.
func (m *Metrics) FetchDuration() *prometheus.HistogramVec {
	return m.fetchDuration
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
