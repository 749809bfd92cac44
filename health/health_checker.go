// Package health provides health reporting for the search API.
package health

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/openrx/medsearch-api/interfaces"
)

// refreshInterval mirrors the scheduler's catalog refresh period.
const refreshInterval = 6 * time.Hour

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store    interfaces.CatalogStore
	searcher interfaces.Searcher
}

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(store interfaces.CatalogStore, searcher interfaces.Searcher) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		store:    store,
		searcher: searcher,
	}
}

// HealthCheck reports the current status. An empty catalog or a catalog
// older than 48 hours is unhealthy; 24 hours is degraded; an open circuit
// breaker is degraded since searches still serve from cache and the stale
// catalog.
func (h *HealthCheckerImpl) HealthCheck(ctx context.Context) (string, map[string]any, int) {
	lastUpdate := h.store.GetLastUpdated()
	isUpdating := h.store.IsUpdating()
	catalogSize := h.store.Size()
	catalogAge := time.Since(lastUpdate)

	stats := h.searcher.Stats(ctx)

	var status string
	var httpStatus int
	switch {
	case catalogSize == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case catalogAge > 48*time.Hour:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case catalogAge > 24*time.Hour:
		status = "degraded"
		httpStatus = http.StatusOK

	case !stats.Breaker.IsHealthy:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data := map[string]any{
		"last_update":       lastUpdate.Format(time.RFC3339),
		"catalog_age_hours": math.Round(catalogAge.Hours()*10) / 10,
		"catalog_size":      catalogSize,
		"is_updating":       isUpdating,
		"next_update":       h.CalculateNextUpdate().Format(time.RFC3339),
		"breaker_state":     stats.Breaker.State,
		"upstream": map[string]any{
			"total_requests": stats.Client.TotalRequests,
			"failures":       stats.Client.Failures,
			"last_success":   stats.Client.LastSuccess.Format(time.RFC3339),
		},
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled catalog refresh time.
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	lastUpdate := h.store.GetLastUpdated()
	if lastUpdate.IsZero() {
		return time.Now()
	}

	next := lastUpdate.Add(refreshInterval)
	for next.Before(time.Now()) {
		next = next.Add(refreshInterval)
	}
	return next
}
