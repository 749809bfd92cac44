// Package config has the configuration file for the app
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port              string
	Address           string
	Env               string
	LogLevel          string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	// Upstream terminology service
	BaseURL        string
	RequestTimeout time.Duration // per-attempt timeout for search traffic
	CatalogTimeout time.Duration // catalog downloads are much larger
	MaxRetries     int
	RetryDelay     time.Duration

	// Circuit breaker
	FailureThreshold int
	ResetTimeout     time.Duration
	HalfOpenRequests int

	// Search
	MinSearchLength  int
	MaxSearchResults int

	// Cache
	MaxMemoryEntries  int
	MemoryTTL         time.Duration
	MaxDiskCacheBytes int64
	DiskCacheTTL      time.Duration
	EvictionPolicy    string
	CachePath         string
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               getEnvWithDefault("ENV", "dev"),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576), // 1MB
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),  // 1MB

		BaseURL:        getEnvWithDefault("BASE_URL", "https://rxnav.nlm.nih.gov/REST"),
		RequestTimeout: getDurationEnvWithDefault("REQUEST_TIMEOUT", 10*time.Second),
		CatalogTimeout: getDurationEnvWithDefault("CATALOG_TIMEOUT", 30*time.Second),
		MaxRetries:     getIntEnvWithDefault("MAX_RETRIES", 3),
		RetryDelay:     getDurationEnvWithDefault("RETRY_DELAY", 300*time.Millisecond),

		FailureThreshold: getIntEnvWithDefault("FAILURE_THRESHOLD", 5),
		ResetTimeout:     getDurationEnvWithDefault("RESET_TIMEOUT", 60*time.Second),
		HalfOpenRequests: getIntEnvWithDefault("HALF_OPEN_REQUESTS", 3),

		MinSearchLength:  getIntEnvWithDefault("MIN_SEARCH_LENGTH", 1),
		MaxSearchResults: getIntEnvWithDefault("MAX_SEARCH_RESULTS", 15),

		MaxMemoryEntries:  getIntEnvWithDefault("MAX_MEMORY_ENTRIES", 100),
		MemoryTTL:         getDurationEnvWithDefault("MEMORY_TTL", 30*time.Minute),
		MaxDiskCacheBytes: getInt64EnvWithDefault("MAX_DISK_CACHE_BYTES", 50*1024*1024),
		DiskCacheTTL:      getDurationEnvWithDefault("DISK_CACHE_TTL", 24*time.Hour),
		EvictionPolicy:    getEnvWithDefault("EVICTION_POLICY", "lru"),
		CachePath:         getEnvWithDefault("CACHE_PATH", "cache.db"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return err
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return err
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateBaseURL(cfg.BaseURL); err != nil {
		return fmt.Errorf("invalid BASE_URL: %w", err)
	}

	if err := validatePositiveDuration(cfg.RequestTimeout, "REQUEST_TIMEOUT"); err != nil {
		return err
	}

	if err := validatePositiveDuration(cfg.CatalogTimeout, "CATALOG_TIMEOUT"); err != nil {
		return err
	}

	if err := validatePositiveDuration(cfg.ResetTimeout, "RESET_TIMEOUT"); err != nil {
		return err
	}

	if err := validatePositiveDuration(cfg.MemoryTTL, "MEMORY_TTL"); err != nil {
		return err
	}

	if err := validatePositiveDuration(cfg.DiskCacheTTL, "DISK_CACHE_TTL"); err != nil {
		return err
	}

	if err := validatePositiveDuration(cfg.RetryDelay, "RETRY_DELAY"); err != nil {
		return err
	}

	if cfg.MaxRetries < 0 || cfg.MaxRetries > 10 {
		return fmt.Errorf("MAX_RETRIES must be between 0 and 10, got: %d", cfg.MaxRetries)
	}

	if cfg.FailureThreshold < 1 {
		return fmt.Errorf("FAILURE_THRESHOLD must be positive, got: %d", cfg.FailureThreshold)
	}

	if cfg.HalfOpenRequests < 1 {
		return fmt.Errorf("HALF_OPEN_REQUESTS must be positive, got: %d", cfg.HalfOpenRequests)
	}

	if cfg.MinSearchLength < 1 || cfg.MinSearchLength > 10 {
		return fmt.Errorf("MIN_SEARCH_LENGTH must be between 1 and 10, got: %d", cfg.MinSearchLength)
	}

	if cfg.MaxSearchResults < 1 || cfg.MaxSearchResults > 100 {
		return fmt.Errorf("MAX_SEARCH_RESULTS must be between 1 and 100, got: %d", cfg.MaxSearchResults)
	}

	if cfg.MaxMemoryEntries < 1 {
		return fmt.Errorf("MAX_MEMORY_ENTRIES must be positive, got: %d", cfg.MaxMemoryEntries)
	}

	if cfg.MaxDiskCacheBytes < 1024*1024 {
		return fmt.Errorf("MAX_DISK_CACHE_BYTES must be at least 1MB, got: %d", cfg.MaxDiskCacheBytes)
	}

	if err := validateEvictionPolicy(cfg.EvictionPolicy); err != nil {
		return fmt.Errorf("invalid EVICTION_POLICY: %w", err)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Check for privileged ports
	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env string) error {
	if env == "" {
		return fmt.Errorf("ENV cannot be empty")
	}

	validEnvs := []string{"dev", "staging", "prod", "test"}
	env = strings.ToLower(env)

	for _, validEnv := range validEnvs {
		if env == validEnv {
			return nil
		}
	}

	return fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, env)
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateBaseURL validates the BASE_URL environment variable
func validateBaseURL(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("BASE_URL cannot be empty")
	}

	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return fmt.Errorf("BASE_URL must start with http:// or https://, got: %s", baseURL)
	}

	return nil
}

// validateEvictionPolicy validates the EVICTION_POLICY environment variable
func validateEvictionPolicy(policy string) error {
	// Only lru is defined for now
	if strings.ToLower(policy) != "lru" {
		return fmt.Errorf("EVICTION_POLICY must be 'lru', got: %s", policy)
	}
	return nil
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

func validatePositiveDuration(d time.Duration, configName string) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got: %s", configName, d)
	}
	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault gets an environment variable as a duration with a
// default value. Plain numbers are treated as seconds.
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_RETENTION_WEEKS",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"BASE_URL",
		"REQUEST_TIMEOUT",
		"CATALOG_TIMEOUT",
		"MAX_RETRIES",
		"RETRY_DELAY",
		"FAILURE_THRESHOLD",
		"RESET_TIMEOUT",
		"HALF_OPEN_REQUESTS",
		"MIN_SEARCH_LENGTH",
		"MAX_SEARCH_RESULTS",
		"MAX_MEMORY_ENTRIES",
		"MEMORY_TTL",
		"MAX_DISK_CACHE_BYTES",
		"DISK_CACHE_TTL",
		"EVICTION_POLICY",
		"CACHE_PATH",
	}
}
