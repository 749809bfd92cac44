// Package cache implements the two-tier query result cache: a small, fast
// LRU memory tier backed by a larger byte-bounded persistent tier. Reads
// consult memory first and promote persistent hits; writes populate both.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/openrx/medsearch-api/terminology/entities"
)

// memoryEntry carries a cached result plus its expiry bookkeeping. Recency
// metadata lives inside the LRU itself.
type memoryEntry struct {
	matches   []entities.Match
	writtenAt time.Time
	ttl       time.Duration
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.After(e.writtenAt.Add(e.ttl))
}

// MemoryStats is a snapshot of the memory tier.
type MemoryStats struct {
	Entries   int    `json:"entries"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// MemoryTier is the bounded in-memory cache tier. Eviction is LRU: at
// capacity, the least-recently-accessed entry makes room for the new one,
// and every read of a hit refreshes recency.
type MemoryTier struct {
	mu         sync.Mutex
	entries    *lru.Cache[string, *memoryEntry]
	capacity   int
	defaultTTL time.Duration
	hits       uint64
	misses     uint64
	evictions  uint64
}

// NewMemoryTier creates a memory tier bounded to maxEntries entries.
func NewMemoryTier(maxEntries int, defaultTTL time.Duration) (*MemoryTier, error) {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Minute
	}

	t := &MemoryTier{capacity: maxEntries, defaultTTL: defaultTTL}
	entries, err := lru.NewWithEvict(maxEntries, func(string, *memoryEntry) {
		t.evictions++
	})
	if err != nil {
		return nil, err
	}
	t.entries = entries
	return t, nil
}

// Get returns the cached matches for key, or ok=false on a miss.
// Expired entries are purged and reported as misses.
func (t *MemoryTier) Get(key string) ([]entities.Match, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries.Get(key)
	if !ok {
		t.misses++
		return nil, false
	}
	if entry.expired(time.Now()) {
		// Lazy purge; an expired entry must read as absent.
		t.entries.Remove(key)
		t.evictions-- // Remove fired the evict callback; expiry is not an LRU eviction
		t.misses++
		return nil, false
	}

	t.hits++
	return entry.matches, true
}

// Set stores matches under key. A non-positive ttl uses the tier
// default.
func (t *MemoryTier) Set(key string, matches []entities.Match, ttl time.Duration) {
	if ttl <= 0 {
		ttl = t.defaultTTL
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries.Add(key, &memoryEntry{
		matches:   matches,
		writtenAt: time.Now(),
		ttl:       ttl,
	})
}

// Clear empties the tier.
func (t *MemoryTier) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.entries.Len()
	t.entries.Purge()
	t.evictions -= uint64(n) // Purge fires the evict callback per entry
}

// Stats returns a snapshot of the tier.
func (t *MemoryTier) Stats() MemoryStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return MemoryStats{
		Entries:   t.entries.Len(),
		Capacity:  t.capacity,
		Hits:      t.hits,
		Misses:    t.misses,
		Evictions: t.evictions,
	}
}
