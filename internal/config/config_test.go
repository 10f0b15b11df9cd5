package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "ENVIRONMENT", "FETCH_TIMEOUT", "CACHE_TTL", "DASHBOARD_TOP_N", "MAX_CONCURRENT_FETCHES", "FIRESTORE_PROJECT_ID", "DATABASE_URL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.ListenAddr())
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 4, cfg.DashboardTopN)
	assert.Equal(t, 10, cfg.MaxConcurrentFetches)
	assert.Equal(t, "Next 30 days", cfg.PredictionPeriod)
	assert.Empty(t, cfg.FirestoreProject)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "Development")
	t.Setenv("FETCH_TIMEOUT", "750ms")
	t.Setenv("DASHBOARD_TOP_N", "6")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 750*time.Millisecond, cfg.FetchTimeout)
	assert.Equal(t, 6, cfg.DashboardTopN)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"FETCH_TIMEOUT":          "soon",
		"CACHE_TTL":              "-1h",
		"DASHBOARD_TOP_N":        "zero",
		"MAX_CONCURRENT_FETCHES": "-2",
		"PORT":                   "http",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&Config{Environment: "development", LogLevel: "debug"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	logger, err = NewLogger(&Config{Environment: "production", LogLevel: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(0))

	_, err = NewLogger(&Config{LogLevel: "chatty"})
	assert.Error(t, err)
}
