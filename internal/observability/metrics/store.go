// Package metrics provides store metrics for observability
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics contains Prometheus metrics for the entry store. It
// satisfies store.Observer.
type StoreMetrics struct {
	mutationsTotal  *prometheus.CounterVec
	entriesGauge    *prometheus.GaugeVec
	persistTotal    *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec

	collectors []prometheus.Collector
}

// NewStoreMetrics creates and registers new store metrics
func NewStoreMetrics(registry prometheus.Registerer) (*StoreMetrics, error) {
	m := &StoreMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *StoreMetrics) initMetrics() {
	m.mutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpacalc_store_mutations_total",
			Help: "Total number of store mutations",
		},
		[]string{"list", "operation"}, // list: subjects, semesters, background; operation: add, update, remove, reset, derive, toggle, clear, import
	)

	m.entriesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gpacalc_store_entries",
			Help: "Current number of entries per list",
		},
		[]string{"list"},
	)

	m.persistTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpacalc_store_persist_total",
			Help: "Total number of key writes to the persistent cache",
		},
		[]string{"key", "status"},
	)

	m.persistDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpacalc_store_persist_duration_seconds",
			Help:    "Time taken to write one key",
			Buckets: persistBuckets,
		},
		[]string{"key"},
	)

	m.collectors = []prometheus.Collector{
		m.mutationsTotal,
		m.entriesGauge,
		m.persistTotal,
		m.persistDuration,
	}
}

// Describe implements the Collector interface
func (m *StoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *StoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordMutation counts one mutation of list.
func (m *StoreMetrics) RecordMutation(list, op string) {
	m.mutationsTotal.WithLabelValues(list, op).Inc()
}

// RecordEntries sets the current size of list.
func (m *StoreMetrics) RecordEntries(list string, n int) {
	m.entriesGauge.WithLabelValues(list).Set(float64(n))
}

// RecordPersist records one key write.
func (m *StoreMetrics) RecordPersist(key string, duration time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.persistTotal.WithLabelValues(key, status).Inc()
	m.persistDuration.WithLabelValues(key).Observe(duration.Seconds())
}
