package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Scheduler configuration
	CatchUpCronSpec  string // periodic sweep for missed rule triggers
	ExecutionWorkers int    // bounded worker pool size per rule execution

	// Billing configuration
	TimeZone string // location used for billing-date arithmetic

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from the environment and an optional .env file
func load() (*Config, error) {
	// godotenv never overrides variables already set in the environment
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		CatchUpCronSpec:  os.Getenv("CATCHUP_CRON_SPEC"),
		ExecutionWorkers: 8,
		TimeZone:         os.Getenv("TIME_ZONE"),
		Environment:      os.Getenv("ENVIRONMENT"),
	}

	if config.CatchUpCronSpec == "" {
		config.CatchUpCronSpec = "*/5 * * * *" // every 5 minutes
	}
	if config.TimeZone == "" {
		config.TimeZone = "UTC"
	}
	if config.Environment == "" {
		config.Environment = "development"
	}
	if workers := os.Getenv("EXECUTION_WORKERS"); workers != "" {
		if parsed, err := strconv.Atoi(workers); err == nil && parsed > 0 {
			config.ExecutionWorkers = parsed
		}
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
