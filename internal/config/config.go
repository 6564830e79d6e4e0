// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     int
	LogLevel string

	// Engine tuning
	GridStep    float64 // grid resolution as a fraction, e.g. 0.05
	DefaultRuns int     // Monte Carlo runs when the request omits them
	Workers     int     // simulation worker count, 0 = per CPU

	// Result cache
	CacheTTL           time.Duration
	CacheCapacity      int
	MemThresholdPct    float64 // used-memory percent triggering aggressive eviction
	CacheSweepSchedule string  // cron schedule for the sweep job
}

// Load reads configuration from the environment, with a .env file as
// optional source. Missing values fall back to defaults.
func Load() (*Config, error) {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnvInt("PORT", 8080),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		GridStep:           getEnvFloat("GRID_STEP", 0.05),
		DefaultRuns:        getEnvInt("DEFAULT_RUNS", 800),
		Workers:            getEnvInt("SIM_WORKERS", 0),
		CacheTTL:           time.Duration(getEnvInt("CACHE_TTL_SECONDS", 600)) * time.Second,
		CacheCapacity:      getEnvInt("CACHE_CAPACITY", 256),
		MemThresholdPct:    getEnvFloat("CACHE_MEM_THRESHOLD_PCT", 85),
		CacheSweepSchedule: getEnv("CACHE_SWEEP_SCHEDULE", "@every 1m"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	if cfg.GridStep <= 0 || cfg.GridStep > 0.25 {
		return nil, fmt.Errorf("invalid GRID_STEP %.3f: must be in (0, 0.25]", cfg.GridStep)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
