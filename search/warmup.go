package search

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/openrx/medsearch-api/logging"
)

const (
	warmupTTL   = 7 * 24 * time.Hour
	warmupLimit = 50
)

// commonNames are frequently searched medications pre-ranked during warm-up
// in addition to every single-letter prefix.
var commonNames = []string{
	"paracetamol", "ibuprofen", "aspirin", "amoxicillin", "doliprane",
	"omeprazole", "metformin", "amlodipine", "atorvastatin", "levothyrox",
}

// WarmUp pre-populates the cache for single-letter prefixes and common
// medication names so first queries skip the ranking pass. Entries get a
// long TTL and a larger limit than interactive searches. Queries already
// cached are left untouched.
func (s *Searcher) WarmUp(ctx context.Context) {
	if !s.catalog.HasData() {
		logging.Warn("Skipping cache warm-up, catalog not loaded")
		return
	}

	start := time.Now()
	queries := warmupQueries()
	warmed := 0

	for _, query := range queries {
		if ctx.Err() != nil {
			logging.Warn("Cache warm-up cancelled", "warmed", warmed)
			return
		}
		if _, _, ok := s.cache.Get(ctx, query); ok {
			continue
		}
		if utf8.RuneCountInString(query) < s.cfg.MinSearchLength {
			continue
		}

		ranked := rank(s.catalog.GetMedications(), query, warmupLimit, true)
		s.cache.Set(ctx, query, ranked, warmupTTL)
		warmed++
	}

	logging.Info("Cache warm-up complete",
		"queries", len(queries),
		"warmed", warmed,
		"duration", time.Since(start).String())
}

func warmupQueries() []string {
	queries := make([]string, 0, 26+len(commonNames))
	for r := 'a'; r <= 'z'; r++ {
		queries = append(queries, string(r))
	}
	queries = append(queries, commonNames...)
	return queries
}
