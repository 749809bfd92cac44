package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openrx/medsearch-api/terminology/entities"
)

func newTestTiered(t *testing.T) *TieredCache {
	t.Helper()
	mem, err := NewMemoryTier(10, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryTier failed: %v", err)
	}
	disk, err := NewSQLiteTier(":memory:", 0, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewSQLiteTier failed: %v", err)
	}
	t.Cleanup(func() { disk.Close() })
	return NewTiered(mem, disk)
}

func TestTieredWritePopulatesBothTiers(t *testing.T) {
	c := newTestTiered(t)
	ctx := context.Background()

	c.Set(ctx, "aspirin", meds("Aspirin"), 0)

	if _, ok := c.memory.Get("aspirin"); !ok {
		t.Error("Memory tier should hold the entry")
	}
	if _, _, ok, _ := c.persistent.Get(ctx, "aspirin"); !ok {
		t.Error("Persistent tier should hold the entry")
	}
}

func TestTieredMemoryHitWins(t *testing.T) {
	c := newTestTiered(t)
	ctx := context.Background()

	c.Set(ctx, "k", meds("A"), 0)

	_, source, ok := c.Get(ctx, "k")
	if !ok || source != SourceMemory {
		t.Errorf("Expected a memory hit, got ok=%v source=%q", ok, source)
	}
}

func TestTieredPersistentHitPromotes(t *testing.T) {
	c := newTestTiered(t)
	ctx := context.Background()

	// Seed only the persistent tier, as after a process restart.
	if err := c.persistent.Set(ctx, "k", meds("A"), time.Hour); err != nil {
		t.Fatalf("Seeding persistent tier failed: %v", err)
	}

	got, source, ok := c.Get(ctx, "k")
	if !ok || source != SourcePersistent {
		t.Fatalf("Expected a persistent hit, got ok=%v source=%q", ok, source)
	}
	if len(got) != 1 || got[0].Name != "A" {
		t.Errorf("Unexpected medications: %+v", got)
	}

	// The hit must now be served from memory.
	_, source, ok = c.Get(ctx, "k")
	if !ok || source != SourceMemory {
		t.Errorf("Expected promotion into memory, got ok=%v source=%q", ok, source)
	}

	if got := c.Stats(ctx).Promotions; got != 1 {
		t.Errorf("Expected 1 promotion, got %d", got)
	}
}

// failingStore simulates a persistent tier without quota or with broken
// storage. Every operation fails.
type failingStore struct{}

var errStorage = errors.New("storage unavailable")

func (f *failingStore) Get(context.Context, string) ([]entities.Match, time.Time, bool, error) {
	return nil, time.Time{}, false, errStorage
}
func (f *failingStore) Set(context.Context, string, []entities.Match, time.Duration) error {
	return errStorage
}
func (f *failingStore) Clear(context.Context) error { return errStorage }
func (f *failingStore) Stats(context.Context) (PersistentStats, error) {
	return PersistentStats{}, errStorage
}
func (f *failingStore) Close() error { return nil }

func TestTieredDegradesToMemoryOnPersistentFailure(t *testing.T) {
	mem, _ := NewMemoryTier(10, time.Minute)
	c := NewTiered(mem, &failingStore{})
	ctx := context.Background()

	// Set must not fail even though the persistent write does.
	c.Set(ctx, "k", meds("A"), 0)

	_, source, ok := c.Get(ctx, "k")
	if !ok || source != SourceMemory {
		t.Errorf("Entry should be served memory-only, got ok=%v source=%q", ok, source)
	}
}

func TestTieredMemoryOnly(t *testing.T) {
	mem, _ := NewMemoryTier(10, time.Minute)
	c := NewTiered(mem, nil)
	ctx := context.Background()

	c.Set(ctx, "k", meds("A"), 0)
	if _, source, ok := c.Get(ctx, "k"); !ok || source != SourceMemory {
		t.Errorf("Memory-only cache should serve the entry, got ok=%v source=%q", ok, source)
	}
	if _, _, ok := c.Get(ctx, "other"); ok {
		t.Error("Expected a miss")
	}

	stats := c.Stats(ctx)
	if stats.Persistent != nil {
		t.Error("Memory-only cache should not report persistent stats")
	}
}

func TestTieredClearEmptiesBothTiers(t *testing.T) {
	c := newTestTiered(t)
	ctx := context.Background()

	c.Set(ctx, "a", meds("A"), 0)
	c.Set(ctx, "b", meds("B"), 0)

	c.Clear(ctx)

	if _, _, ok := c.Get(ctx, "a"); ok {
		t.Error("Expected a miss after clear")
	}
	stats := c.Stats(ctx)
	if stats.Memory.Entries != 0 {
		t.Errorf("Memory tier should be empty, got %d", stats.Memory.Entries)
	}
	if stats.Persistent == nil || stats.Persistent.Entries != 0 {
		t.Errorf("Persistent tier should be empty, got %+v", stats.Persistent)
	}
}
