package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"krishi-advisor/internal/catalog"
	"krishi-advisor/internal/config"
	"krishi-advisor/internal/engine"
	"krishi-advisor/internal/handlers"
	"krishi-advisor/internal/services"
	"krishi-advisor/internal/store"
	"krishi-advisor/pkg/agmarknet"
	"krishi-advisor/pkg/agromonitoring"
	"krishi-advisor/pkg/visualcrossing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	for _, skipped := range cat.Skipped {
		log.Warn("Skipped catalog entry", zap.String("entry", skipped))
	}

	ctx := context.Background()

	// Optional price history store
	var history services.PriceHistory
	var database handlers.Pinger
	if cfg.DatabaseURL != "" {
		priceStore, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect price history: %w", err)
		}
		defer priceStore.Close()
		history = priceStore
		database = priceStore
	}

	// Upstream providers; unconfigured ones are left nil so the services fall back
	var weatherProvider services.WeatherProvider
	if cfg.VisualCrossingKey != "" {
		weatherProvider = visualcrossing.NewClient(cfg.VisualCrossingKey, "")
	}
	var priceProvider services.PriceProvider
	if mandi := agmarknet.NewClient(cfg.DataGovAPIKey, ""); mandi.Configured() {
		priceProvider = mandi
	}
	var soilProvider services.SoilProvider
	if agro := agromonitoring.NewClient(cfg.AgroAPIKey, ""); agro.Configured() {
		soilProvider = agro
	}

	// Initialize services
	cacheService := services.NewCacheService(ctx, cfg, log)
	defer cacheService.Close()

	marketDataService := services.NewMarketDataService(cfg, priceProvider, history, cacheService, log)
	soilService := services.NewSoilService(soilProvider, cacheService, cfg.FetchTimeout, log)
	predictionProvider := engine.NewRuleBasedProvider(
		engine.NewForecaster(log, cfg.PredictionPeriod),
		engine.NewCurveGenerator(cat),
	)
	orchestrator := services.NewRecommendationOrchestrator(
		cfg,
		cat,
		predictionProvider,
		services.NewWeatherService(weatherProvider, cacheService, cfg.FetchTimeout, log),
		soilService,
		marketDataService,
		cacheService,
		log,
	)

	cropNames := make([]string, 0, len(cat.Crops()))
	for _, c := range cat.Crops() {
		cropNames = append(cropNames, c.Name)
	}
	ingestor, err := services.NewIngestor(cfg.PriceRefreshCron, marketDataService, cropNames, log)
	if err != nil {
		return err
	}
	ingestor.OnRefresh(orchestrator.InvalidateRecommendations)
	if priceProvider != nil {
		ingestor.Start()
		defer ingestor.Stop()
	}

	// Initialize handlers
	recommendationHandler := handlers.NewRecommendationHandler(orchestrator)
	marketHandler := handlers.NewMarketHandler(orchestrator)
	fieldHandler := handlers.NewFieldHandler(soilService)
	healthHandler := handlers.NewHealthHandler(cacheService.FirestoreEnabled(), database)

	// Create Fiber app with optimized config
	app := fiber.New(fiber.Config{
		Prefork:       false,
		StrictRouting: true,
		CaseSensitive: true,
		ServerHeader:  "Krishi-Advisor",
		AppName:       "Krishi Advisor v1.0",
		ReadTimeout:   time.Second * 10,
		WriteTimeout:  time.Second * 35,
		BodyLimit:     1 * 1024 * 1024, // 1MB
		ErrorHandler:  handlers.CustomErrorHandler,
	})

	// Middleware stack
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Client-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	}))

	handlers.SetupRoutes(app, recommendationHandler, marketHandler, fieldHandler, healthHandler)

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.ListenAddr())
	}()

	log.Info("Krishi Advisor API started",
		zap.String("addr", cfg.ListenAddr()),
		zap.String("environment", cfg.Environment),
		zap.Bool("live_weather", weatherProvider != nil),
		zap.Bool("live_prices", priceProvider != nil),
		zap.Bool("live_soil", soilProvider != nil),
		zap.Bool("price_history", history != nil),
		zap.Bool("firestore", cacheService.FirestoreEnabled()))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	log.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server shutdown complete")
	return nil
}
