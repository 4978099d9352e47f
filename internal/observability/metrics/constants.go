// Package metrics holds the Prometheus collectors of gpacalc. Each
// collector group registers itself on the registry it is given, so tests
// can use a fresh prometheus.NewRegistry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Values of the status label.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// key writes: 0.1ms to ~400ms
	persistBuckets = prometheus.ExponentialBuckets(0.0001, 2, 12)
	// requests: 1ms to ~4s
	latencyBuckets = prometheus.ExponentialBuckets(0.001, 2, 12)
	// response bodies: 100B to 10MB
	sizeBuckets = prometheus.ExponentialBuckets(100, 10, 6)
)
