// Package metrics holds the Prometheus collectors for ingestion, resolution and
// store queries. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ontograph"

type Metrics struct {
	registry *prometheus.Registry

	rows         *prometheus.CounterVec
	files        *prometheus.CounterVec
	merges       prometheus.Counter
	queryLatency *prometheus.HistogramVec
	queryErrors  *prometheus.CounterVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rows_total",
			Help:      "Rows processed by ingestion, by dataset kind and outcome.",
		}, []string{"kind", "outcome"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Dataset files processed, by kind and status.",
		}, []string{"kind", "status"}),
		merges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolution",
			Name:      "same_as_merges_total",
			Help:      "SAME_AS edges committed.",
		}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_duration_seconds",
			Help:      "Graph store query latency by access mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		queryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_errors_total",
			Help:      "Failed graph store queries by access mode.",
		}, []string{"mode"}),
	}
	m.registry.MustRegister(m.rows, m.files, m.merges, m.queryLatency, m.queryErrors)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) AddRows(kind, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rows.WithLabelValues(kind, outcome).Add(float64(n))
}

func (m *Metrics) FileDone(kind string, failed bool) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "failed"
	}
	m.files.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) MergeCommitted() {
	if m == nil {
		return
	}
	m.merges.Inc()
}

// ObserveQuery records one store round trip in mode "read" or "write".
func (m *Metrics) ObserveQuery(mode string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.queryLatency.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		m.queryErrors.WithLabelValues(mode).Inc()
	}
}
