// Package metrics provides Prometheus metrics collection for the search API.
// It exports HTTP server metrics plus search pipeline metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - search_request_total: Counter with a source label (cache tier or catalog)
//   - search_duration_seconds: Histogram of end-to-end search latency
//   - catalog_size: Gauge tracking the loaded catalog entry count
//
// All metrics are automatically registered with the Prometheus default
// registry during package initialization. StatsCollector additionally
// exposes cache, breaker, and upstream client counters read from a stats
// snapshot at scrape time; register it once the searcher is wired.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen recently)",
		},
	)

	SearchRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_request_total",
			Help: "Total searches by serving source",
		},
		[]string{"source"},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "End-to-end search latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	CatalogSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_size",
			Help: "Number of medications in the loaded catalog",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(SearchRequestTotals)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(CatalogSize)
}
