// Package scheduler provides automated catalog refresh scheduling and
// staleness monitoring for the search API. It coordinates periodic refreshes
// with the catalog store using dependency injection.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/openrx/medsearch-api/interfaces"
	"github.com/openrx/medsearch-api/logging"
)

const (
	refreshInterval = 6 * time.Hour

	// stalenessLimit is two refresh intervals plus an hour of slack; past
	// this the monitor starts warning every hour.
	stalenessLimit = 13 * time.Hour
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler handles catalog refreshes and staleness monitoring
type Scheduler struct {
	store     interfaces.CatalogStore
	refresher interfaces.CatalogRefresher
	scheduler *gocron.Scheduler
	stop      chan struct{}
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(store interfaces.CatalogStore, refresher interfaces.CatalogRefresher) *Scheduler {
	return &Scheduler{
		store:     store,
		refresher: refresher,
		scheduler: gocron.NewScheduler(time.Local),
		stop:      make(chan struct{}),
	}
}

// Start performs the initial catalog load, warms the cache, and schedules
// periodic refreshes with staleness monitoring.
func (s *Scheduler) Start() error {
	// Initial load
	if err := s.refreshCatalog(); err != nil {
		logging.Error("Failed to perform initial catalog load", "error", err)
		return fmt.Errorf("initial catalog load failed: %w", err)
	}

	s.refresher.WarmUp(context.Background())

	_, err := s.scheduler.Every(refreshInterval).Do(func() {
		if err := s.refreshCatalog(); err != nil {
			logging.Error("Failed to refresh catalog", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule catalog refresh", "error", err)
		return fmt.Errorf("failed to schedule catalog refresh: %w", err)
	}

	s.scheduler.StartAsync()

	s.startStalenessMonitoring()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	close(s.stop)
}

func (s *Scheduler) refreshCatalog() error {
	logging.Info("Starting catalog refresh", "time", time.Now().Format(time.RFC3339))
	start := time.Now()

	if err := s.refresher.RefreshCatalog(context.Background()); err != nil {
		return err
	}

	logging.Info("Catalog refresh completed",
		"duration", time.Since(start).String(),
		"catalog_size", s.store.Size())

	return nil
}

// startStalenessMonitoring warns hourly once the catalog has gone stale.
func (s *Scheduler) startStalenessMonitoring() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				lastUpdate := s.store.GetLastUpdated()
				if time.Since(lastUpdate) > stalenessLimit {
					logging.Warn("Catalog hasn't been refreshed in over 13 hours",
						"last_update", lastUpdate.Format(time.RFC3339))
				}
			}
		}
	}()
}
