package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/openrx/medsearch-api/terminology/entities"
)

func meds(names ...string) []entities.Match {
	out := make([]entities.Match, 0, len(names))
	for _, name := range names {
		out = append(out, entities.Match{
			Medication: entities.Medication{ID: entities.MedicationID(name), Name: name},
		})
	}
	return out
}

func TestMemoryRoundTrip(t *testing.T) {
	tier, err := NewMemoryTier(10, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryTier failed: %v", err)
	}

	want := meds("Aspirin", "Ibuprofen")
	tier.Set("pain", want, 0)

	got, ok := tier.Get("pain")
	if !ok {
		t.Fatal("Expected a hit")
	}
	if len(got) != 2 || got[0].Name != "Aspirin" || got[1].Name != "Ibuprofen" {
		t.Errorf("Unexpected medications: %+v", got)
	}

	if _, ok := tier.Get("missing"); ok {
		t.Error("Expected a miss for an unknown key")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	tier, err := NewMemoryTier(10, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryTier failed: %v", err)
	}

	tier.Set("short", meds("Aspirin"), 10*time.Millisecond)
	if _, ok := tier.Get("short"); !ok {
		t.Fatal("Entry should be readable before expiry")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := tier.Get("short"); ok {
		t.Error("Expired entry should read as absent")
	}

	stats := tier.Stats()
	if stats.Entries != 0 {
		t.Errorf("Expired entry should be purged, got %d entries", stats.Entries)
	}
}

func TestMemoryLRUEviction(t *testing.T) {
	tier, err := NewMemoryTier(3, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryTier failed: %v", err)
	}

	tier.Set("a", meds("A"), 0)
	tier.Set("b", meds("B"), 0)
	tier.Set("c", meds("C"), 0)

	// Touch everything except "a" so it becomes the least recently used.
	tier.Get("b")
	tier.Get("c")

	tier.Set("d", meds("D"), 0)

	if _, ok := tier.Get("a"); ok {
		t.Error("Least-recently-used entry should have been evicted")
	}
	for _, key := range []string{"b", "c", "d"} {
		if _, ok := tier.Get(key); !ok {
			t.Errorf("Key %q should have survived the eviction", key)
		}
	}

	if got := tier.Stats().Evictions; got != 1 {
		t.Errorf("Expected exactly 1 eviction, got %d", got)
	}
}

func TestMemoryReadRefreshesRecency(t *testing.T) {
	tier, err := NewMemoryTier(2, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryTier failed: %v", err)
	}

	tier.Set("a", meds("A"), 0)
	tier.Set("b", meds("B"), 0)

	// Reading "a" makes "b" the eviction candidate.
	tier.Get("a")
	tier.Set("c", meds("C"), 0)

	if _, ok := tier.Get("a"); !ok {
		t.Error("Recently read entry should not be evicted")
	}
	if _, ok := tier.Get("b"); ok {
		t.Error("Expected the stale entry to be evicted")
	}
}

func TestMemoryClearAndStats(t *testing.T) {
	tier, err := NewMemoryTier(5, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryTier failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		tier.Set(fmt.Sprintf("k%d", i), meds("A"), 0)
	}
	tier.Get("k0")
	tier.Get("nope")

	stats := tier.Stats()
	if stats.Entries != 4 || stats.Capacity != 5 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %+v", stats)
	}

	tier.Clear()
	if got := tier.Stats(); got.Entries != 0 || got.Evictions != 0 {
		t.Errorf("Clear should empty the tier without counting evictions, got %+v", got)
	}
}
