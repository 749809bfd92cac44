package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openrx/medsearch-api/breaker"
	"github.com/openrx/medsearch-api/cache"
	"github.com/openrx/medsearch-api/config"
	"github.com/openrx/medsearch-api/data"
	"github.com/openrx/medsearch-api/health"
	"github.com/openrx/medsearch-api/httpclient"
	"github.com/openrx/medsearch-api/logging"
	"github.com/openrx/medsearch-api/metrics"
	"github.com/openrx/medsearch-api/scheduler"
	"github.com/openrx/medsearch-api/search"
	"github.com/openrx/medsearch-api/server"
	"github.com/openrx/medsearch-api/terminology"
	"github.com/openrx/medsearch-api/validation"
)

func main() {
	// .env is optional; the environment may already be configured
	if err := godotenv.Load(); err != nil {
		logging.Debug("No .env file found, using environment", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logDir := ""
	if cfg.Env != "dev" {
		logDir = "logs"
	}
	logging.InitLoggerWithRetention(logDir, cfg.LogRetentionWeeks)

	// Resilience layer: breaker guards every upstream call, the client
	// retries around it
	brk := breaker.New(breaker.Config{
		FailureThreshold: cfg.FailureThreshold,
		ResetTimeout:     cfg.ResetTimeout,
		HalfOpenRequests: cfg.HalfOpenRequests,
	})

	client := httpclient.New(brk, httpclient.Config{
		Timeout:           cfg.RequestTimeout,
		Retries:           cfg.MaxRetries,
		RetryDelay:        cfg.RetryDelay,
		RequestsPerSecond: 10,
		Burst:             20,
	})

	adapter := terminology.New(client, cfg.BaseURL, cfg.CatalogTimeout)

	// Two-tier cache: the persistent tier is optional, searches degrade to
	// memory-only when it cannot be opened
	memory, err := cache.NewMemoryTier(cfg.MaxMemoryEntries, cfg.MemoryTTL)
	if err != nil {
		logging.Error("Failed to create memory cache", "error", err)
		os.Exit(1)
	}

	var persistent cache.PersistentStore
	sqliteTier, err := cache.NewSQLiteTier(cfg.CachePath, cfg.MaxDiskCacheBytes, cfg.DiskCacheTTL)
	if err != nil {
		logging.Warn("Persistent cache unavailable, running memory-only", "path", cfg.CachePath, "error", err)
	} else {
		persistent = sqliteTier
	}

	tiered := cache.NewTiered(memory, persistent)
	defer func() {
		if err := tiered.Close(); err != nil {
			logging.Error("Failed to close cache", "error", err)
		}
	}()

	catalog := data.NewCatalogContainer()
	searcher := search.New(search.Config{
		MinSearchLength: cfg.MinSearchLength,
		MaxResults:      cfg.MaxSearchResults,
		ResultTTL:       cfg.MemoryTTL,
	}, tiered, catalog, adapter, client, brk)

	prometheus.MustRegister(metrics.NewStatsCollector(searcher.Stats))

	checker := health.NewHealthChecker(catalog, searcher)

	sched := scheduler.NewScheduler(catalog, searcher)
	go func() {
		if err := sched.Start(); err != nil {
			logging.Error("Scheduler failed to start, serving without catalog", "error", err)
		}
		metrics.CatalogSize.Set(float64(catalog.Size()))
	}()
	defer sched.Stop()

	srv := server.NewServer(cfg, searcher, checker, validation.NewQueryValidator())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit

	searcher.CancelAllRequests()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Shutdown error", "error", err)
	}
}
