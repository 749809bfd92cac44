// Package data provides the thread-safe catalog container. The catalog is
// replaced wholesale on refresh with atomic pointers, so searches always
// observe either the previous complete catalog or the new one, never a
// partial update.
package data

import (
	"sync/atomic"
	"time"

	"github.com/openrx/medsearch-api/logging"
	"github.com/openrx/medsearch-api/terminology/entities"
)

// CatalogContainer holds the current catalog with atomic values for
// zero-downtime replacement.
type CatalogContainer struct {
	medications atomic.Value // []entities.Medication
	byID        atomic.Value // map[string]entities.Medication
	lastUpdated atomic.Value // time.Time
	updating    atomic.Bool
}

// NewCatalogContainer creates a container with an empty catalog.
func NewCatalogContainer() *CatalogContainer {
	c := &CatalogContainer{}
	c.medications.Store(make([]entities.Medication, 0))
	c.byID.Store(make(map[string]entities.Medication))
	c.lastUpdated.Store(time.Time{})
	return c
}

// GetMedications returns the current catalog, sorted alphabetically by
// name. Callers must not mutate the returned slice.
func (c *CatalogContainer) GetMedications() []entities.Medication {
	if v := c.medications.Load(); v != nil {
		if medications, ok := v.([]entities.Medication); ok {
			return medications
		}
	}

	logging.Warn("Catalog is empty or invalid")
	return []entities.Medication{}
}

// GetMedicationsByID returns the id lookup map for O(1) access.
func (c *CatalogContainer) GetMedicationsByID() map[string]entities.Medication {
	if v := c.byID.Load(); v != nil {
		if byID, ok := v.(map[string]entities.Medication); ok {
			return byID
		}
	}

	logging.Warn("Catalog index is empty or invalid")
	return make(map[string]entities.Medication)
}

// GetLastUpdated returns the timestamp of the last catalog refresh.
func (c *CatalogContainer) GetLastUpdated() time.Time {
	if v := c.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true while a catalog refresh is in progress.
func (c *CatalogContainer) IsUpdating() bool {
	return c.updating.Load()
}

// Size returns the number of catalog entries.
func (c *CatalogContainer) Size() int {
	return len(c.GetMedications())
}

// HasData reports whether a catalog has ever been loaded.
func (c *CatalogContainer) HasData() bool {
	return c.Size() > 0
}

// UpdateCatalog atomically swaps in a new catalog.
func (c *CatalogContainer) UpdateCatalog(medications []entities.Medication) {
	byID := make(map[string]entities.Medication, len(medications))
	for i := range medications {
		byID[medications[i].ID] = medications[i]
	}

	c.medications.Store(medications)
	c.byID.Store(byID)
	c.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a refresh. It returns false when another
// refresh is already running.
func (c *CatalogContainer) BeginUpdate() bool {
	return c.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a refresh.
func (c *CatalogContainer) EndUpdate() {
	c.updating.Store(false)
}
