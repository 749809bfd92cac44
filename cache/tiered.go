package cache

import (
	"context"
	"sync"
	"time"

	"github.com/openrx/medsearch-api/logging"
	"github.com/openrx/medsearch-api/terminology/entities"
)

// Result source tags, reported back to search callers so they can tell
// which tier (if any) served a query.
const (
	SourceMemory     = "memory-cache"
	SourcePersistent = "persistent-cache"
)

// Stats aggregates both tiers for health reporting.
type Stats struct {
	Memory     MemoryStats      `json:"memory"`
	Persistent *PersistentStats `json:"persistent,omitempty"`
	Promotions uint64           `json:"promotions"`
}

// TieredCache composes the memory tier with an optional persistent tier.
// Reads consult memory first; a persistent hit is promoted into memory
// best-effort. Writes populate both tiers, and a persistent write failure
// degrades that entry to memory-only instead of failing the set.
type TieredCache struct {
	mu         sync.RWMutex
	memory     *MemoryTier
	persistent PersistentStore // may be nil

	statsMu        sync.Mutex
	persistentHits uint64
	persistentMiss uint64
	promotions     uint64
}

// NewTiered builds the cache. persistent may be nil for memory-only
// operation.
func NewTiered(memory *MemoryTier, persistent PersistentStore) *TieredCache {
	return &TieredCache{memory: memory, persistent: persistent}
}

// Get looks key up in both tiers. The second return value names the tier
// that served the hit (SourceMemory or SourcePersistent).
func (c *TieredCache) Get(ctx context.Context, key string) ([]entities.Match, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if matches, ok := c.memory.Get(key); ok {
		return matches, SourceMemory, true
	}

	if c.persistent == nil {
		return nil, "", false
	}

	matches, expiresAt, ok, err := c.persistent.Get(ctx, key)
	if err != nil {
		logging.Warn("Persistent cache read failed", "key", key, "error", err)
		return nil, "", false
	}
	if !ok {
		c.statsMu.Lock()
		c.persistentMiss++
		c.statsMu.Unlock()
		return nil, "", false
	}

	c.statsMu.Lock()
	c.persistentHits++
	c.promotions++
	c.statsMu.Unlock()

	// Promote into the memory tier with the remaining lifetime so the
	// entry does not outlive its persistent copy. Best-effort by design:
	// a failed promotion costs a future memory miss, nothing else.
	if remaining := time.Until(expiresAt); remaining > 0 {
		c.memory.Set(key, matches, remaining)
	}

	return matches, SourcePersistent, true
}

// Set writes key to both tiers. A non-positive ttl lets each tier apply
// its own default (short in memory, long on disk).
func (c *TieredCache) Set(ctx context.Context, key string, matches []entities.Match, ttl time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.memory.Set(key, matches, ttl)

	if c.persistent == nil {
		return
	}
	if err := c.persistent.Set(ctx, key, matches, ttl); err != nil {
		// Quota or storage trouble: this entry lives in memory only.
		logging.Warn("Persistent cache write failed, keeping entry memory-only",
			"key", key, "error", err)
	}
}

// Clear empties both tiers. Readers block for the duration of the clear so
// they never observe one tier empty and the other populated.
func (c *TieredCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory.Clear()
	if c.persistent != nil {
		if err := c.persistent.Clear(ctx); err != nil {
			logging.Warn("Failed to clear persistent cache", "error", err)
		}
	}
}

// Stats returns a snapshot across tiers.
func (c *TieredCache) Stats(ctx context.Context) Stats {
	stats := Stats{Memory: c.memory.Stats()}

	c.statsMu.Lock()
	stats.Promotions = c.promotions
	hits, misses := c.persistentHits, c.persistentMiss
	c.statsMu.Unlock()

	if c.persistent != nil {
		ps, err := c.persistent.Stats(ctx)
		if err != nil {
			logging.Warn("Failed to collect persistent cache stats", "error", err)
		} else {
			ps.Hits = hits
			ps.Misses = misses
			stats.Persistent = &ps
		}
	}
	return stats
}

// Close releases the persistent tier, if any.
func (c *TieredCache) Close() error {
	if c.persistent == nil {
		return nil
	}
	return c.persistent.Close()
}
