package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func cleanupEnv() {
	for _, key := range GetEnvVars() {
		_ = os.Unsetenv(key)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected default address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.BaseURL != "https://rxnav.nlm.nih.gov/REST" {
		t.Errorf("Unexpected default BASE_URL: %s", cfg.BaseURL)
	}
	if cfg.FailureThreshold != 5 {
		t.Errorf("Expected default failure threshold 5, got %d", cfg.FailureThreshold)
	}
	if cfg.ResetTimeout != 60*time.Second {
		t.Errorf("Expected default reset timeout 60s, got %s", cfg.ResetTimeout)
	}
	if cfg.HalfOpenRequests != 3 {
		t.Errorf("Expected default half-open requests 3, got %d", cfg.HalfOpenRequests)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 300*time.Millisecond {
		t.Errorf("Expected default retry delay 300ms, got %s", cfg.RetryDelay)
	}
	if cfg.MinSearchLength != 1 {
		t.Errorf("Expected default min search length 1, got %d", cfg.MinSearchLength)
	}
	if cfg.MaxSearchResults != 15 {
		t.Errorf("Expected default max search results 15, got %d", cfg.MaxSearchResults)
	}
	if cfg.MaxMemoryEntries != 100 {
		t.Errorf("Expected default max memory entries 100, got %d", cfg.MaxMemoryEntries)
	}
	if cfg.MemoryTTL != 30*time.Minute {
		t.Errorf("Expected default memory TTL 30m, got %s", cfg.MemoryTTL)
	}
	if cfg.MaxDiskCacheBytes != 50*1024*1024 {
		t.Errorf("Expected default disk cache size 50MB, got %d", cfg.MaxDiskCacheBytes)
	}
	if cfg.DiskCacheTTL != 24*time.Hour {
		t.Errorf("Expected default disk cache TTL 24h, got %s", cfg.DiskCacheTTL)
	}
	if cfg.EvictionPolicy != "lru" {
		t.Errorf("Expected default eviction policy lru, got %s", cfg.EvictionPolicy)
	}
}

func TestLoadOverrides(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	_ = os.Setenv("PORT", "9001")
	_ = os.Setenv("FAILURE_THRESHOLD", "10")
	_ = os.Setenv("RESET_TIMEOUT", "30s")
	_ = os.Setenv("MEMORY_TTL", "10m")
	_ = os.Setenv("MAX_RETRIES", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "9001" {
		t.Errorf("Expected port 9001, got %s", cfg.Port)
	}
	if cfg.FailureThreshold != 10 {
		t.Errorf("Expected failure threshold 10, got %d", cfg.FailureThreshold)
	}
	if cfg.ResetTimeout != 30*time.Second {
		t.Errorf("Expected reset timeout 30s, got %s", cfg.ResetTimeout)
	}
	if cfg.MemoryTTL != 10*time.Minute {
		t.Errorf("Expected memory TTL 10m, got %s", cfg.MemoryTTL)
	}
	if cfg.MaxRetries != 1 {
		t.Errorf("Expected max retries 1, got %d", cfg.MaxRetries)
	}
}

func TestDurationAsPlainSeconds(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	_ = os.Setenv("RESET_TIMEOUT", "45")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.ResetTimeout != 45*time.Second {
		t.Errorf("Expected 45s from plain number, got %s", cfg.ResetTimeout)
	}
}

func TestInvalidPort(t *testing.T) {
	testCases := []struct {
		port     string
		expected string
	}{
		{"abc", "PORT must be a valid number"},
		{"0", "PORT must be between 1 and 65535"},
		{"65536", "PORT must be between 1 and 65535"},
		{"80", "PORT 80 is privileged"},
	}

	for _, tc := range testCases {
		cleanupEnv()
		_ = os.Setenv("PORT", tc.port)

		_, err := Load()
		if err == nil {
			t.Errorf("PORT=%s: expected error", tc.port)
			continue
		}
		if !strings.Contains(err.Error(), tc.expected) {
			t.Errorf("PORT=%s: expected error containing %q, got %v", tc.port, tc.expected, err)
		}
	}
	cleanupEnv()
}

func TestInvalidValues(t *testing.T) {
	testCases := []struct {
		key   string
		value string
	}{
		{"ADDRESS", "8.8.8.8"},
		{"ADDRESS", "not-an-ip"},
		{"ENV", "production"},
		{"LOG_LEVEL", "verbose"},
		{"BASE_URL", "ftp://example.com"},
		{"MAX_RETRIES", "11"},
		{"MIN_SEARCH_LENGTH", "0"},
		{"MAX_SEARCH_RESULTS", "500"},
		{"MAX_DISK_CACHE_BYTES", "1024"},
		{"EVICTION_POLICY", "fifo"},
	}

	for _, tc := range testCases {
		cleanupEnv()
		_ = os.Setenv(tc.key, tc.value)

		if _, err := Load(); err == nil {
			t.Errorf("%s=%s: expected validation error", tc.key, tc.value)
		}
	}
	cleanupEnv()
}
