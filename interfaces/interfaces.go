// Package interfaces defines core abstractions of the search API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"time"

	"github.com/openrx/medsearch-api/search"
	"github.com/openrx/medsearch-api/terminology/entities"
)

// CatalogStore defines the contract for catalog storage. It provides
// thread-safe access to the medication catalog with atomic operations for
// zero-downtime replacement.
type CatalogStore interface {
	GetMedications() []entities.Medication
	GetMedicationsByID() map[string]entities.Medication
	GetLastUpdated() time.Time
	IsUpdating() bool
	Size() int
	HasData() bool

	UpdateCatalog(medications []entities.Medication)
	BeginUpdate() bool
	EndUpdate()
}

// CatalogFetcher defines the contract for fetching the medication catalog
// from the upstream terminology service.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context) ([]entities.Medication, error)
}

// Searcher defines the contract exposed to the HTTP layer. Search never
// returns an error; failures resolve to empty results.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) search.Result
	ClearCache(ctx context.Context)
	CancelAllRequests()
	Stats(ctx context.Context) search.Stats
	CatalogSize() int
	CatalogUpdatedAt() time.Time
}

// CatalogRefresher defines the contract used by the scheduler to keep the
// catalog fresh.
type CatalogRefresher interface {
	RefreshCatalog(ctx context.Context) error
	WarmUp(ctx context.Context)
}

// Scheduler defines the contract for job scheduling and staleness
// monitoring.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker defines the contract for health reporting.
type HealthChecker interface {
	// HealthCheck returns the current status, response payload, and the
	// HTTP status code to serve it with.
	HealthCheck(ctx context.Context) (status string, data map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled catalog refresh time.
	CalculateNextUpdate() time.Time
}

// QueryValidator defines the contract for validating user-supplied search
// input before it reaches the orchestrator.
type QueryValidator interface {
	ValidateQuery(query string) error
	ValidateLimit(raw string) (int, error)
}
