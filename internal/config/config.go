// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	PriceCacheTTL         time.Duration
	PriceFetchTimeout     time.Duration
	PriceFetchConcurrency int
	StreamInterval        time.Duration

	Crypto   CryptoConfig
	Currency CurrencyConfig
	Backup   BackupConfig

	CacheCleanupSchedule string
	MaintenanceSchedule  string
}

// CryptoConfig describes the crypto quote endpoint.
type CryptoConfig struct {
	URLTemplate string // must contain one %s for the exchange symbol
	PricePath   string // JSONPath to the price
	QuoteSuffix string
}

// CurrencyConfig holds the static rate table and its optional live refresh.
type CurrencyConfig struct {
	Rates           portfolio.RateTable
	RefreshEnabled  bool
	RefreshSchedule string
}

// BackupConfig holds ledger backup settings
type BackupConfig struct {
	Enabled         bool
	Schedule        string
	Bucket          string
	Endpoint        string // empty = AWS
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FOLIO_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	rates, err := portfolio.ParseRateTable(getEnv("CURRENCY_RATES", "USD:1"))
	if err != nil {
		return nil, fmt.Errorf("invalid CURRENCY_RATES: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("FOLIO_PORT", 8080),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PriceCacheTTL:         getEnvAsDuration("PRICE_CACHE_TTL", 15*time.Minute),
		PriceFetchTimeout:     getEnvAsDuration("PRICE_FETCH_TIMEOUT", 8*time.Second),
		PriceFetchConcurrency: getEnvAsInt("PRICE_FETCH_CONCURRENCY", 8),
		StreamInterval:        getEnvAsDuration("STREAM_INTERVAL", 30*time.Second),

		Crypto: CryptoConfig{
			URLTemplate: getEnv("CRYPTO_QUOTE_URL", "https://api.binance.com/api/v3/ticker/price?symbol=%s"),
			PricePath:   getEnv("CRYPTO_QUOTE_PATH", "$.price"),
			QuoteSuffix: getEnv("CRYPTO_QUOTE_SUFFIX", "USDT"),
		},
		Currency: CurrencyConfig{
			Rates:           rates,
			RefreshEnabled:  getEnvAsBool("EXCHANGE_RATE_REFRESH", false),
			RefreshSchedule: getEnv("EXCHANGE_RATE_SCHEDULE", "0 0 * * * *"),
		},
		Backup: BackupConfig{
			Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
			Schedule:        getEnv("BACKUP_SCHEDULE", "0 0 4 * * *"),
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("BACKUP_PREFIX", "folio"),
		},
		CacheCleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "0 30 3 * * *"),
		MaintenanceSchedule:  getEnv("MAINTENANCE_SCHEDULE", "0 0 2 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PriceCacheTTL <= 0 {
		return fmt.Errorf("PRICE_CACHE_TTL must be positive")
	}
	if c.PriceFetchTimeout <= 0 {
		return fmt.Errorf("PRICE_FETCH_TIMEOUT must be positive")
	}
	if c.PriceFetchConcurrency <= 0 {
		return fmt.Errorf("PRICE_FETCH_CONCURRENCY must be positive")
	}
	if c.StreamInterval <= 0 {
		return fmt.Errorf("STREAM_INTERVAL must be positive")
	}

	if c.Backup.Enabled {
		if c.Backup.Bucket == "" {
			return fmt.Errorf("BACKUP_BUCKET is required when backups are enabled")
		}
		if c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("backup credentials are required when backups are enabled")
		}
	}

	return nil
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
