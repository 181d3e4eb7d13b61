// Package config reads process configuration from the environment, after
// loading a .env file when one is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory    = "memory"
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"
)

// Config holds every setting of the API and the import tool.
type Config struct {
	AppPort     string
	StoreDriver string
	DatabaseURL string

	FirestoreProjectID string

	JWTSecret string

	KafkaBrokers []string
	KafkaTopic   string

	Categories            []string
	EnforceOptionStockCap bool
	MaxCommitAttempts     int

	LogLevel string
}

// Load reads .env (if present) and the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		AppPort:            valueOr(getenv("APP_PORT"), "8080"),
		StoreDriver:        strings.ToLower(valueOr(getenv("STORE_DRIVER"), DriverMemory)),
		DatabaseURL:        getenv("DATABASE_URL"),
		FirestoreProjectID: valueOr(getenv("FIRESTORE_PROJECT_ID"), getenv("GOOGLE_CLOUD_PROJECT")),
		JWTSecret:          getenv("JWT_SECRET"),
		KafkaBrokers:       splitList(getenv("KAFKA_BROKERS")),
		KafkaTopic:         valueOr(getenv("KAFKA_TOPIC"), "supply-events"),
		Categories:         splitList(getenv("CATALOG_CATEGORIES")),
		LogLevel:           valueOr(getenv("LOG_LEVEL"), "info"),
	}

	var err error
	if cfg.EnforceOptionStockCap, err = parseBool(getenv("CATALOG_ENFORCE_OPTION_STOCK_CAP"), true); err != nil {
		return nil, fmt.Errorf("CATALOG_ENFORCE_OPTION_STOCK_CAP: %w", err)
	}
	if cfg.MaxCommitAttempts, err = parseInt(getenv("ORDER_MAX_COMMIT_ATTEMPTS"), 3); err != nil {
		return nil, fmt.Errorf("ORDER_MAX_COMMIT_ATTEMPTS: %w", err)
	}
	if cfg.MaxCommitAttempts < 1 {
		return nil, fmt.Errorf("ORDER_MAX_COMMIT_ATTEMPTS must be >= 1, got %d", cfg.MaxCommitAttempts)
	}

	switch cfg.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres store")
		}
	case DriverFirestore:
		if cfg.FirestoreProjectID == "" {
			return nil, errors.New("FIRESTORE_PROJECT_ID is required for the firestore store")
		}
	default:
		return nil, fmt.Errorf("STORE_DRIVER %q is not one of memory, postgres, firestore", cfg.StoreDriver)
	}
	return cfg, nil
}

func valueOr(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(v string, fallback bool) (bool, error) {
	if v = strings.TrimSpace(v); v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func parseInt(v string, fallback int) (int, error) {
	if v = strings.TrimSpace(v); v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
