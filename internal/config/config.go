package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	ServerPort string

	// StorageBackend selects the store implementation explicitly;
	// there is no silent fallback when the database is unreachable.
	StorageBackend string

	// Accrual cutoff: local wall-clock time in the reference timezone at
	// which the daily run fires.
	AccrualCutoffHour   int
	AccrualCutoffMinute int
	AccrualTimezone     string

	MaxTransactionAmount decimal.Decimal

	MigrationsDir string
}

const (
	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"
)

// Load reads configuration from the environment, with a best-effort .env
// file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBUser:          getEnv("DB_USER", "postgres"),
		DBPassword:      getEnv("DB_PASSWORD", "password"),
		DBName:          getEnv("DB_NAME", "savings"),
		DBSSLMode:       getEnv("DB_SSLMODE", "disable"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		StorageBackend:  getEnv("STORAGE_BACKEND", StorageBackendPostgres),
		AccrualTimezone: getEnv("ACCRUAL_TIMEZONE", "Asia/Yangon"),
		MigrationsDir:   getEnv("MIGRATIONS_DIR", "migrations"),
	}

	if cfg.StorageBackend != StorageBackendPostgres && cfg.StorageBackend != StorageBackendMemory {
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q: must be %q or %q",
			cfg.StorageBackend, StorageBackendPostgres, StorageBackendMemory)
	}

	hour, minute, err := parseCutoff(getEnv("ACCRUAL_CUTOFF", "16:30"))
	if err != nil {
		return nil, err
	}
	cfg.AccrualCutoffHour = hour
	cfg.AccrualCutoffMinute = minute

	maxAmount, err := decimal.NewFromString(getEnv("MAX_TRANSACTION_AMOUNT", "1000000.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_TRANSACTION_AMOUNT: %w", err)
	}
	cfg.MaxTransactionAmount = maxAmount

	return cfg, nil
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func parseCutoff(raw string) (int, int, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid ACCRUAL_CUTOFF %q: expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid ACCRUAL_CUTOFF hour %q", parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid ACCRUAL_CUTOFF minute %q", parts[1])
	}
	return hour, minute, nil
}

// getEnv fetches environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
