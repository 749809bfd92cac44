package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openrx/medsearch-api/search"
)

var (
	cacheHitsDesc = prometheus.NewDesc(
		"cache_hits_total",
		"Cache hits by tier",
		[]string{"tier"}, nil,
	)
	cacheMissesDesc = prometheus.NewDesc(
		"cache_misses_total",
		"Cache misses by tier",
		[]string{"tier"}, nil,
	)
	cacheEvictionsDesc = prometheus.NewDesc(
		"cache_evictions_total",
		"Cache evictions by tier",
		[]string{"tier"}, nil,
	)
	breakerStateDesc = prometheus.NewDesc(
		"circuit_breaker_state",
		"Circuit breaker state (0=closed, 1=half-open, 2=open)",
		nil, nil,
	)
	upstreamRequestsDesc = prometheus.NewDesc(
		"upstream_requests_total",
		"Upstream terminology requests by outcome",
		[]string{"outcome"}, nil,
	)
)

// StatsCollector exposes search pipeline counters to Prometheus by reading a
// stats snapshot on every scrape, so the cache, breaker, and client packages
// stay free of metrics plumbing.
type StatsCollector struct {
	stats func(ctx context.Context) search.Stats
}

func NewStatsCollector(stats func(ctx context.Context) search.Stats) *StatsCollector {
	return &StatsCollector{stats: stats}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheHitsDesc
	ch <- cacheMissesDesc
	ch <- cacheEvictionsDesc
	ch <- breakerStateDesc
	ch <- upstreamRequestsDesc
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats(context.Background())

	ch <- prometheus.MustNewConstMetric(cacheHitsDesc, prometheus.CounterValue,
		float64(s.Cache.Memory.Hits), "memory")
	ch <- prometheus.MustNewConstMetric(cacheMissesDesc, prometheus.CounterValue,
		float64(s.Cache.Memory.Misses), "memory")
	ch <- prometheus.MustNewConstMetric(cacheEvictionsDesc, prometheus.CounterValue,
		float64(s.Cache.Memory.Evictions), "memory")
	if p := s.Cache.Persistent; p != nil {
		ch <- prometheus.MustNewConstMetric(cacheHitsDesc, prometheus.CounterValue,
			float64(p.Hits), "persistent")
		ch <- prometheus.MustNewConstMetric(cacheMissesDesc, prometheus.CounterValue,
			float64(p.Misses), "persistent")
	}

	ch <- prometheus.MustNewConstMetric(breakerStateDesc, prometheus.GaugeValue,
		breakerStateValue(s.Breaker.State))

	ch <- prometheus.MustNewConstMetric(upstreamRequestsDesc, prometheus.CounterValue,
		float64(s.Client.Successes), "success")
	ch <- prometheus.MustNewConstMetric(upstreamRequestsDesc, prometheus.CounterValue,
		float64(s.Client.Failures), "failure")
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
