// Command advisor runs the recommendation engine from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"krishi-advisor/internal/catalog"
	"krishi-advisor/internal/config"
	"krishi-advisor/internal/engine"
	"krishi-advisor/internal/services"
	"krishi-advisor/pkg/agmarknet"
	"krishi-advisor/pkg/visualcrossing"
)

// cli holds the flags shared by every subcommand and the lazily built engine.
type cli struct {
	verbose     bool
	jsonOut     bool
	catalogPath string
	timeout     time.Duration

	logger *zap.Logger
	cache  *services.CacheService
	orch   *services.RecommendationOrchestrator
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "advisor",
		Short: "Crop and mandi price advisor",
		Long: `advisor ranks crops for a city and date, evaluates weather risk and
forecasts mandi prices using the built-in crop catalog.

Live weather and prices are used when VISUAL_CROSSING_KEY and DATA_GOV_API_KEY
are set; otherwise regional normals and the last known mandi prices are used.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.teardown()
		},
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "Print JSON instead of a table")
	root.PersistentFlags().StringVar(&c.catalogPath, "catalog", "", "Crop catalog YAML (default: built-in)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "Operation timeout")

	root.AddCommand(c.recommendCmd())
	root.AddCommand(c.alertsCmd())
	root.AddCommand(c.predictCmd())
	root.AddCommand(c.trendCmd())
	root.AddCommand(c.pricesCmd())
	return root
}

func (c *cli) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.catalogPath != "" {
		cfg.CatalogPath = c.catalogPath
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if c.verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	c.logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	var weather services.WeatherProvider
	if cfg.VisualCrossingKey != "" {
		weather = visualcrossing.NewClient(cfg.VisualCrossingKey, "")
	}
	var prices services.PriceProvider
	if mandi := agmarknet.NewClient(cfg.DataGovAPIKey, ""); mandi.Configured() {
		prices = mandi
	}

	// The CLI never writes to shared stores.
	cfg.FirestoreProject = ""
	c.cache = services.NewCacheService(context.Background(), cfg, c.logger)
	c.orch = services.NewRecommendationOrchestrator(
		cfg,
		cat,
		engine.NewRuleBasedProvider(engine.NewForecaster(c.logger, cfg.PredictionPeriod), engine.NewCurveGenerator(cat)),
		services.NewWeatherService(weather, c.cache, cfg.FetchTimeout, c.logger),
		services.NewSoilService(nil, c.cache, cfg.FetchTimeout, c.logger),
		services.NewMarketDataService(cfg, prices, nil, c.cache, c.logger),
		c.cache,
		c.logger,
	)
	return nil
}

func (c *cli) teardown() {
	if c.cache != nil {
		_ = c.cache.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func (c *cli) withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}
