package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openrx/medsearch-api/breaker"
	"github.com/openrx/medsearch-api/cache"
	"github.com/openrx/medsearch-api/httpclient"
	"github.com/openrx/medsearch-api/search"
)

func gatherValues(t *testing.T, stats search.Stats) map[string]float64 {
	t.Helper()

	reg := prometheus.NewRegistry()
	if err := reg.Register(NewStatsCollector(func(context.Context) search.Stats {
		return stats
	})); err != nil {
		t.Fatalf("register: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	values := make(map[string]float64)
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			key := fam.GetName()
			for _, l := range m.GetLabel() {
				key += "/" + l.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[key] = m.GetGauge().GetValue()
			}
		}
	}
	return values
}

func TestStatsCollector(t *testing.T) {
	stats := search.Stats{
		Cache: cache.Stats{
			Memory: cache.MemoryStats{Hits: 12, Misses: 4, Evictions: 2},
			Persistent: &cache.PersistentStats{
				Hits:   7,
				Misses: 3,
			},
		},
		Breaker: breaker.Stats{State: "open"},
		Client:  httpclient.Stats{Successes: 20, Failures: 5},
	}

	values := gatherValues(t, stats)

	want := map[string]float64{
		"cache_hits_total/memory":         12,
		"cache_misses_total/memory":       4,
		"cache_evictions_total/memory":    2,
		"cache_hits_total/persistent":     7,
		"cache_misses_total/persistent":   3,
		"circuit_breaker_state":           2,
		"upstream_requests_total/success": 20,
		"upstream_requests_total/failure": 5,
	}
	for key, v := range want {
		if values[key] != v {
			t.Errorf("%s = %v, want %v", key, values[key], v)
		}
	}
}

func TestStatsCollectorMemoryOnly(t *testing.T) {
	values := gatherValues(t, search.Stats{
		Cache:   cache.Stats{Memory: cache.MemoryStats{Hits: 1}},
		Breaker: breaker.Stats{State: "closed"},
	})

	if _, ok := values["cache_hits_total/persistent"]; ok {
		t.Error("expected no persistent tier series without a persistent cache")
	}
	if values["circuit_breaker_state"] != 0 {
		t.Errorf("circuit_breaker_state = %v, want 0", values["circuit_breaker_state"])
	}
}
