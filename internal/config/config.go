package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                 string
	Environment          string
	LogLevel             string
	VisualCrossingKey    string
	DataGovAPIKey        string
	AgroAPIKey           string
	FirestoreProject     string
	DatabaseURL          string
	CatalogPath          string
	FetchTimeout         time.Duration
	CacheTTL             time.Duration
	DashboardTopN        int
	PriceRefreshCron     string
	PredictionPeriod     string
	MaxConcurrentFetches int
}

// Load reads configuration from environment variables (optionally .env).
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "production"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		VisualCrossingKey: getEnv("VISUAL_CROSSING_KEY", ""),
		DataGovAPIKey:     getEnv("DATA_GOV_API_KEY", ""),
		AgroAPIKey:        getEnv("AGRO_API_KEY", ""),
		FirestoreProject:  getEnv("FIRESTORE_PROJECT_ID", ""),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		CatalogPath:       getEnv("CATALOG_PATH", ""),
		PriceRefreshCron:  getEnv("PRICE_REFRESH_CRON", "0 */6 * * *"),
		PredictionPeriod:  getEnv("PREDICTION_PERIOD", "Next 30 days"),
	}

	var err error
	if cfg.FetchTimeout, err = getEnvAsDuration("FETCH_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getEnvAsDuration("CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DashboardTopN, err = getEnvAsInt("DASHBOARD_TOP_N", 4); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentFetches, err = getEnvAsInt("MAX_CONCURRENT_FETCHES", 10); err != nil {
		return nil, err
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT: %s", cfg.Port)
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// ListenAddr returns the host:port string for the HTTP server.
func (c *Config) ListenAddr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %s", key, v)
	}
	return n, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
