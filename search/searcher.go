// Package search implements the search orchestrator: it validates queries,
// consults the tiered cache, lazily initializes the catalog, ranks matches,
// and writes results back to the cache. Search never returns an error to the
// caller; degraded dependencies surface as empty or stale results and are
// observable through Stats.
package search

import (
	"context"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/openrx/medsearch-api/breaker"
	"github.com/openrx/medsearch-api/cache"
	"github.com/openrx/medsearch-api/data"
	"github.com/openrx/medsearch-api/httpclient"
	"github.com/openrx/medsearch-api/logging"
	"github.com/openrx/medsearch-api/terminology"
)

// SourceCatalog marks a result computed from the in-memory catalog rather
// than served from a cache tier.
const SourceCatalog = "catalog"

// Options controls a single search call.
type Options struct {
	Limit           int
	IncludeGenerics bool
}

// DefaultOptions returns the options applied when the caller specifies none:
// the configured result limit and generic-name matching enabled.
func DefaultOptions() Options {
	return Options{Limit: 0, IncludeGenerics: true}
}

// Result is an ordered, ranked medication list with provenance metadata.
type Result struct {
	Medications  []Match   `json:"medications"`
	Source       string    `json:"source"`
	SearchTimeMs int64     `json:"searchTimeMs"`
	Query        string    `json:"query"`
	Timestamp    time.Time `json:"timestamp"`
}

// Config holds the orchestrator tunables.
type Config struct {
	MinSearchLength int
	MaxResults      int
	ResultTTL       time.Duration
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		MinSearchLength: 1,
		MaxResults:      15,
		ResultTTL:       30 * time.Minute,
	}
}

// Stats aggregates the health of every collaborator for external reporting.
type Stats struct {
	Cache           cache.Stats      `json:"cache"`
	Client          httpclient.Stats `json:"client"`
	Breaker         breaker.Stats    `json:"breaker"`
	CatalogSize     int              `json:"catalogSize"`
	CatalogUpdated  time.Time        `json:"catalogUpdated"`
	Searches        uint64           `json:"searches"`
	CacheHits       uint64           `json:"cacheHits"`
	CatalogSearches uint64           `json:"catalogSearches"`
}

// Searcher is the search façade handed to the HTTP layer.
type Searcher struct {
	cfg     Config
	cache   *cache.TieredCache
	catalog *data.CatalogContainer
	adapter *terminology.Adapter
	client  *httpclient.Client
	brk     *breaker.Breaker
	group   singleflight.Group

	searches        atomic.Uint64
	cacheHits       atomic.Uint64
	catalogSearches atomic.Uint64
}

// New creates a Searcher. Zero fields in cfg fall back to defaults.
func New(cfg Config, tc *cache.TieredCache, catalog *data.CatalogContainer, adapter *terminology.Adapter, client *httpclient.Client, brk *breaker.Breaker) *Searcher {
	def := DefaultConfig()
	if cfg.MinSearchLength <= 0 {
		cfg.MinSearchLength = def.MinSearchLength
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = def.ResultTTL
	}

	return &Searcher{
		cfg:     cfg,
		cache:   tc,
		catalog: catalog,
		adapter: adapter,
		client:  client,
		brk:     brk,
	}
}

// Search resolves a query to a ranked medication list. It never returns an
// error: queries below the minimum length and dependency failures both
// resolve to an empty result.
func (s *Searcher) Search(ctx context.Context, rawQuery string, opts Options) Result {
	start := time.Now()
	s.searches.Add(1)

	query := terminology.Normalize(rawQuery)
	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.MaxResults
	}

	if utf8.RuneCountInString(query) < s.cfg.MinSearchLength {
		return Result{
			Medications:  []Match{},
			Source:       cache.SourceMemory,
			SearchTimeMs: 0,
			Query:        query,
			Timestamp:    time.Now(),
		}
	}

	key := cacheKey(query, opts)
	if matches, source, ok := s.cache.Get(ctx, key); ok {
		s.cacheHits.Add(1)
		if len(matches) > limit {
			matches = matches[:limit]
		}
		return Result{
			Medications:  matches,
			Source:       source,
			SearchTimeMs: time.Since(start).Milliseconds(),
			Query:        query,
			Timestamp:    time.Now(),
		}
	}

	if err := s.ensureCatalog(ctx); err != nil {
		logging.Warn("Catalog unavailable, searching stale data", "query", query, "error", err)
	}

	s.catalogSearches.Add(1)
	ranked := rank(s.catalog.GetMedications(), query, limit, opts.IncludeGenerics)
	// An empty catalog means the upstream fetch failed; caching that empty
	// result would keep masking the upstream for the full TTL.
	if s.catalog.HasData() {
		s.cache.Set(ctx, key, ranked, s.cfg.ResultTTL)
	}

	return Result{
		Medications:  ranked,
		Source:       SourceCatalog,
		SearchTimeMs: time.Since(start).Milliseconds(),
		Query:        query,
		Timestamp:    time.Now(),
	}
}

// cacheKey derives the cache key for a query under the given options.
// Generic-excluding searches get their own entries so a hit never serves
// generic-only matches to a caller that asked for none.
func cacheKey(query string, opts Options) string {
	if opts.IncludeGenerics {
		return query
	}
	return query + "|nogenerics"
}

// ensureCatalog lazily fetches the catalog on first use. Concurrent callers
// collapse into one in-flight fetch. A fetch failure leaves any previously
// loaded catalog in place.
func (s *Searcher) ensureCatalog(ctx context.Context) error {
	if s.catalog.HasData() {
		return nil
	}

	_, err, _ := s.group.Do("catalog-init", func() (any, error) {
		if s.catalog.HasData() {
			return nil, nil
		}
		return nil, s.refresh(ctx)
	})
	return err
}

// RefreshCatalog fetches a fresh catalog and swaps it in. Used by the
// scheduler; a failure keeps serving the previous catalog.
func (s *Searcher) RefreshCatalog(ctx context.Context) error {
	if !s.catalog.BeginUpdate() {
		logging.Debug("Catalog refresh already in progress, skipping")
		return nil
	}
	defer s.catalog.EndUpdate()

	return s.refresh(ctx)
}

func (s *Searcher) refresh(ctx context.Context) error {
	medications, err := s.adapter.FetchCatalog(ctx)
	if err != nil {
		return err
	}

	s.catalog.UpdateCatalog(medications)
	logging.Info("Catalog updated", "size", len(medications))
	return nil
}

// ClearCache drops both cache tiers.
func (s *Searcher) ClearCache(ctx context.Context) {
	s.cache.Clear(ctx)
}

// CancelAllRequests aborts every in-flight upstream request.
func (s *Searcher) CancelAllRequests() {
	s.client.CancelAll()
}

// CatalogSize returns the number of catalog entries.
func (s *Searcher) CatalogSize() int {
	return s.catalog.Size()
}

// CatalogUpdatedAt returns the time of the last successful catalog refresh.
func (s *Searcher) CatalogUpdatedAt() time.Time {
	return s.catalog.GetLastUpdated()
}

// Stats reports aggregate orchestrator, cache, client, and breaker health.
func (s *Searcher) Stats(ctx context.Context) Stats {
	return Stats{
		Cache:           s.cache.Stats(ctx),
		Client:          s.client.Stats(),
		Breaker:         s.brk.Stats(),
		CatalogSize:     s.catalog.Size(),
		CatalogUpdated:  s.catalog.GetLastUpdated(),
		Searches:        s.searches.Load(),
		CacheHits:       s.cacheHits.Load(),
		CatalogSearches: s.catalogSearches.Load(),
	}
}
