package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	BindAddress string
	Env         string

	// Database configuration
	DatabaseURL string
	DBMaxConns  int32

	// Worker pool sizing for database-bound request work
	WorkerPoolSize int64

	// Snowflake node id; -1 picks a random node at startup
	NodeID int64

	// FX configuration
	FXSurcharge       decimal.Decimal
	FXRefreshInterval time.Duration

	// Optional Redis cache for the last good rate snapshot
	RedisURL      string
	RedisPassword string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	surcharge, err := decimal.NewFromString(getEnv("FX_SURCHARGE", "1.06"))
	if err != nil {
		return nil, fmt.Errorf("FX_SURCHARGE is not a valid decimal: %w", err)
	}

	cfg := &Config{
		BindAddress:       getEnv("BIND_ADDRESS", ":8080"),
		Env:               getEnv("ENV", "development"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBMaxConns:        int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		WorkerPoolSize:    int64(getEnvAsInt("WORKER_POOL_SIZE", 64)),
		NodeID:            int64(getEnvAsInt("NODE_ID", -1)),
		FXSurcharge:       surcharge,
		FXRefreshInterval: getEnvAsDuration("FX_REFRESH_INTERVAL", time.Hour),
		RedisURL:          getEnv("REDIS_URL", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.FXSurcharge.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("FX_SURCHARGE must be >= 1")
	}

	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("WORKER_POOL_SIZE must be >= 1")
	}

	if c.NodeID > 1023 {
		return fmt.Errorf("NODE_ID must be in [0, 1023]")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
