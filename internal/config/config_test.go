package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "supply-events", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.Categories)
	assert.True(t, cfg.EnforceOptionStockCap)
	assert.Equal(t, 3, cfg.MaxCommitAttempts)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"APP_PORT":                         "9090",
		"STORE_DRIVER":                     "Postgres",
		"DATABASE_URL":                     "postgres://localhost/supply",
		"KAFKA_BROKERS":                    "k1:9092, k2:9092,",
		"CATALOG_CATEGORIES":               "사료, 간식",
		"CATALOG_ENFORCE_OPTION_STOCK_CAP": "false",
		"ORDER_MAX_COMMIT_ATTEMPTS":        "5",
		"LOG_LEVEL":                        "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"사료", "간식"}, cfg.Categories)
	assert.False(t, cfg.EnforceOptionStockCap)
	assert.Equal(t, 5, cfg.MaxCommitAttempts)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestFromEnvFirestoreFallsBackToCloudProject(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"STORE_DRIVER":         "firestore",
		"GOOGLE_CLOUD_PROJECT": "supply-dev",
	}))
	require.NoError(t, err)
	assert.Equal(t, "supply-dev", cfg.FirestoreProjectID)
}

func TestFromEnvRejectsInvalidSettings(t *testing.T) {
	tests := map[string]map[string]string{
		"postgres without url": {"STORE_DRIVER": "postgres"},
		"firestore without id": {"STORE_DRIVER": "firestore"},
		"unknown driver":       {"STORE_DRIVER": "mysql"},
		"bad attempts":         {"ORDER_MAX_COMMIT_ATTEMPTS": "many"},
		"zero attempts":        {"ORDER_MAX_COMMIT_ATTEMPTS": "0"},
		"bad cap flag":         {"CATALOG_ENFORCE_OPTION_STOCK_CAP": "sometimes"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envMap(env))
			assert.Error(t, err)
		})
	}
}
