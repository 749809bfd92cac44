package health

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/openrx/medsearch-api/breaker"
	"github.com/openrx/medsearch-api/data"
	"github.com/openrx/medsearch-api/search"
	"github.com/openrx/medsearch-api/terminology/entities"
)

type stubSearcher struct {
	healthy bool
}

func (s *stubSearcher) Search(ctx context.Context, query string, opts search.Options) search.Result {
	return search.Result{}
}
func (s *stubSearcher) ClearCache(ctx context.Context) {}
func (s *stubSearcher) CancelAllRequests() {}
func (s *stubSearcher) CatalogSize() int { return 0 }
func (s *stubSearcher) CatalogUpdatedAt() time.Time { return time.Time{} }
func (s *stubSearcher) Stats(ctx context.Context) search.Stats {
	return search.Stats{
		Breaker: breaker.Stats{State: "closed", IsHealthy: s.healthy},
	}
}

func loadedStore() *data.CatalogContainer {
	store := data.NewCatalogContainer()
	store.UpdateCatalog([]entities.Medication{
		{ID: "a1", Name: "Aspirin"},
	})
	return store
}

func TestHealthCheckHealthy(t *testing.T) {
	checker := NewHealthChecker(loadedStore(), &stubSearcher{healthy: true})

	status, data, httpStatus := checker.HealthCheck(context.Background())

	if status != "healthy" {
		t.Errorf("expected healthy, got %q", status)
	}
	if httpStatus != http.StatusOK {
		t.Errorf("expected 200, got %d", httpStatus)
	}
	if data["catalog_size"] != 1 {
		t.Errorf("expected catalog_size 1, got %v", data["catalog_size"])
	}
}

func TestHealthCheckEmptyCatalog(t *testing.T) {
	checker := NewHealthChecker(data.NewCatalogContainer(), &stubSearcher{healthy: true})

	status, _, httpStatus := checker.HealthCheck(context.Background())

	if status != "unhealthy" {
		t.Errorf("expected unhealthy for empty catalog, got %q", status)
	}
	if httpStatus != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", httpStatus)
	}
}

func TestHealthCheckOpenBreakerDegraded(t *testing.T) {
	checker := NewHealthChecker(loadedStore(), &stubSearcher{healthy: false})

	status, _, httpStatus := checker.HealthCheck(context.Background())

	if status != "degraded" {
		t.Errorf("expected degraded with unhealthy breaker, got %q", status)
	}
	if httpStatus != http.StatusOK {
		t.Errorf("expected 200 for degraded, got %d", httpStatus)
	}
}

func TestCalculateNextUpdate(t *testing.T) {
	store := loadedStore()
	checker := NewHealthChecker(store, &stubSearcher{healthy: true})

	next := checker.CalculateNextUpdate()
	if !next.After(time.Now()) {
		t.Error("expected next update in the future")
	}
	if next.Sub(store.GetLastUpdated()) != refreshInterval {
		t.Errorf("expected next update one interval after last update, got %v", next.Sub(store.GetLastUpdated()))
	}
}

func TestCalculateNextUpdateNeverLoaded(t *testing.T) {
	checker := NewHealthChecker(data.NewCatalogContainer(), &stubSearcher{healthy: true})

	next := checker.CalculateNextUpdate()
	if time.Until(next) > time.Minute {
		t.Error("expected immediate next update for a never-loaded catalog")
	}
}
