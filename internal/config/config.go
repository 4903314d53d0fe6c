// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir           string // Base directory for databases and reports (always absolute)
	LedgerDir         string // Directory scanned for broker ledger CSV files
	ReportsDir        string // Directory for archived JSON reports
	BenchmarkSymbol   string // Yahoo Finance symbol for the benchmark index
	BenchmarkFallback bool   // Use nearest prior trading day when a flow date has no price
	PriceSyncSchedule string // Cron schedule for the benchmark price refresh
	PriceLookbackDays int    // Backfill window for an empty price store
	LogLevel          string
	Port              int
	DevMode           bool
}

// Load reads configuration from environment variables, with a .env file
// honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("XIRR_DATA_DIR", "data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		LedgerDir:         getEnv("XIRR_LEDGER_DIR", "ledger"),
		ReportsDir:        getEnv("XIRR_REPORTS_DIR", "reports"),
		BenchmarkSymbol:   getEnv("XIRR_BENCHMARK_SYMBOL", "^NSEI"),
		BenchmarkFallback: getEnvAsBool("XIRR_BENCHMARK_FALLBACK", true),
		PriceSyncSchedule: getEnv("XIRR_PRICE_SYNC_SCHEDULE", "30 18 * * *"),
		PriceLookbackDays: getEnvAsInt("XIRR_PRICE_LOOKBACK_DAYS", 3650),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Port:              getEnvAsInt("PORT", 8080),
		DevMode:           getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.BenchmarkSymbol == "" {
		return fmt.Errorf("benchmark symbol must not be empty")
	}
	if c.PriceLookbackDays <= 0 {
		return fmt.Errorf("price lookback days must be positive")
	}
	return nil
}

// HistoryDBPath returns the path of the price history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// CacheDBPath returns the path of the calculation cache database.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
