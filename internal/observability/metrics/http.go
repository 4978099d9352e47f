package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics counts API requests by method and route template, e.g.
// GET /api/v1/subjects/:id.
type HTTPMetrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	failures    *prometheus.CounterVec
	size        *prometheus.HistogramVec
	rateLimited prometheus.Counter
}

// NewHTTPMetrics creates the request collectors and registers them.
func NewHTTPMetrics(registry prometheus.Registerer) (*HTTPMetrics, error) {
	route := []string{"method", "path"}
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gpacalc_http_requests_total",
			Help: "Total number of HTTP requests",
		}, append(route, "status_code")),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gpacalc_http_request_duration_seconds",
			Help:    "Time taken for HTTP requests",
			Buckets: latencyBuckets,
		}, route),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gpacalc_http_request_errors_total",
			Help: "Total number of failed HTTP requests by error category",
		}, append(route, "error_type")),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gpacalc_http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes",
			Buckets: sizeBuckets,
		}, route),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gpacalc_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *HTTPMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.duration, m.failures, m.size, m.rateLimited}
}

// Describe implements prometheus.Collector.
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// RecordRequest records one completed request. A negative size is not
// observed.
func (m *HTTPMetrics) RecordRequest(method, path string, status int, duration time.Duration, size int64) {
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, path).Observe(duration.Seconds())
	if size >= 0 {
		m.size.WithLabelValues(method, path).Observe(float64(size))
	}
}

// RecordError counts a request that failed with errorType.
func (m *HTTPMetrics) RecordError(method, path, errorType string) {
	m.failures.WithLabelValues(method, path, errorType).Inc()
}

// RecordRateLimited counts a request rejected by the rate limiter.
func (m *HTTPMetrics) RecordRateLimited() {
	m.rateLimited.Inc()
}
