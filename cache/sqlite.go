package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openrx/medsearch-api/terminology/entities"
	_ "modernc.org/sqlite"
)

// PersistentStats is a snapshot of the persistent tier.
type PersistentStats struct {
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"totalBytes"`
	MaxBytes   int64  `json:"maxBytes"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
}

// PersistentStore is the optional second cache tier. Platforms without
// durable storage simply run the tiered cache with a nil store.
type PersistentStore interface {
	// Get returns the matches for key plus the entry's expiry time.
	// Expired entries read as absent and may be purged on the way out.
	Get(ctx context.Context, key string) ([]entities.Match, time.Time, bool, error)
	Set(ctx context.Context, key string, matches []entities.Match, ttl time.Duration) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (PersistentStats, error)
	Close() error
}

// Compile-time check that the sqlite tier satisfies the store contract.
var _ PersistentStore = (*SQLiteTier)(nil)

// SQLiteTier persists cached search results in a single sqlite table,
// bounded by total byte size with oldest-written-first eviction.
type SQLiteTier struct {
	db         *sql.DB
	maxBytes   int64
	defaultTTL time.Duration
}

// NewSQLiteTier opens (or creates) the cache database at path. Use
// ":memory:" for tests.
func NewSQLiteTier(path string, maxBytes int64, defaultTTL time.Duration) (*SQLiteTier, error) {
	if maxBytes <= 0 {
		maxBytes = 50 * 1024 * 1024
	}
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// A single connection sidesteps sqlite write contention.
	db.SetMaxOpenConns(1)

	schema := `
CREATE TABLE IF NOT EXISTS search_cache (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    written_at INTEGER NOT NULL,
    ttl_ms INTEGER NOT NULL,
    size_bytes INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_cache_written ON search_cache(written_at);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &SQLiteTier{db: db, maxBytes: maxBytes, defaultTTL: defaultTTL}, nil
}

// Get implements PersistentStore.
func (t *SQLiteTier) Get(ctx context.Context, key string) ([]entities.Match, time.Time, bool, error) {
	var value []byte
	var writtenAt, ttlMs int64

	row := t.db.QueryRowContext(ctx,
		`SELECT value, written_at, ttl_ms FROM search_cache WHERE key = ?`, key)
	if err := row.Scan(&value, &writtenAt, &ttlMs); err != nil {
		if err == sql.ErrNoRows {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	expiresAt := time.UnixMilli(writtenAt).Add(time.Duration(ttlMs) * time.Millisecond)
	if time.Now().After(expiresAt) {
		// Lazy purge of the expired row; a failure here only delays cleanup.
		t.db.ExecContext(ctx, `DELETE FROM search_cache WHERE key = ?`, key)
		return nil, time.Time{}, false, nil
	}

	var matches []entities.Match
	if err := json.Unmarshal(value, &matches); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}

	return matches, expiresAt, true, nil
}

// Set implements PersistentStore. Inserting over the byte budget evicts
// oldest-written entries until the tier fits again.
func (t *SQLiteTier) Set(ctx context.Context, key string, matches []entities.Match, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = t.defaultTTL
	}

	value, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if int64(len(value)) > t.maxBytes {
		return fmt.Errorf("cache entry of %d bytes exceeds the %d byte budget", len(value), t.maxBytes)
	}

	_, err = t.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO search_cache (key, value, written_at, ttl_ms, size_bytes)
		 VALUES (?, ?, ?, ?, ?)`,
		key, value, time.Now().UnixMilli(), ttl.Milliseconds(), len(value))
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return t.enforceBudget(ctx, key)
}

// enforceBudget deletes oldest-written rows until the tier is back under
// its byte budget. The just-written key is kept.
func (t *SQLiteTier) enforceBudget(ctx context.Context, keep string) error {
	for {
		var total int64
		row := t.db.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(size_bytes), 0) FROM search_cache`)
		if err := row.Scan(&total); err != nil {
			return fmt.Errorf("failed to size cache: %w", err)
		}
		if total <= t.maxBytes {
			return nil
		}

		res, err := t.db.ExecContext(ctx,
			`DELETE FROM search_cache WHERE key IN (
			     SELECT key FROM search_cache WHERE key != ?
			     ORDER BY written_at ASC LIMIT 10)`, keep)
		if err != nil {
			return fmt.Errorf("failed to evict cache entries: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
	}
}

// Clear implements PersistentStore.
func (t *SQLiteTier) Clear(ctx context.Context) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM search_cache`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Stats implements PersistentStore. Hit/miss counters live in the tiered
// wrapper; this reports the durable footprint.
func (t *SQLiteTier) Stats(ctx context.Context) (PersistentStats, error) {
	var stats PersistentStats
	stats.MaxBytes = t.maxBytes

	row := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM search_cache`)
	if err := row.Scan(&stats.Entries, &stats.TotalBytes); err != nil {
		return stats, fmt.Errorf("failed to collect cache stats: %w", err)
	}
	return stats, nil
}

// Close closes the underlying database.
func (t *SQLiteTier) Close() error {
	return t.db.Close()
}
