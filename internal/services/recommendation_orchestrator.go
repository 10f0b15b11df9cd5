package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"krishi-advisor/internal/catalog"
	"krishi-advisor/internal/config"
	"krishi-advisor/internal/engine"
	"krishi-advisor/internal/models"
)

const (
	precipBlendWeight = 0.2

	noticeWeatherStale = "Weather data unavailable; recommendation based on regional averages"
	noticeSoilStale    = "Soil data unavailable; using the regional soil profile"
	noticeMarketStale  = "Live mandi prices unavailable; showing last known prices"
)

// RecommendationOrchestrator coordinates the recommendation pipeline: it gathers
// weather, soil and market inputs concurrently, runs the engines and merges the
// ranked, explained output.
type RecommendationOrchestrator struct {
	config   *config.Config
	catalog  *catalog.Catalog
	scorer   *engine.Scorer
	provider engine.PredictionProvider
	weather  *WeatherService
	soil     *SoilService
	market   *MarketDataService
	memo     *DayMemo
	tracker  *RequestTracker
	logger   *zap.Logger
	now      func() time.Time
}

func NewRecommendationOrchestrator(
	cfg *config.Config,
	cat *catalog.Catalog,
	provider engine.PredictionProvider,
	weather *WeatherService,
	soil *SoilService,
	market *MarketDataService,
	cache *CacheService,
	logger *zap.Logger,
) *RecommendationOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationOrchestrator{
		config:   cfg,
		catalog:  cat,
		scorer:   engine.NewScorer(logger),
		provider: provider,
		weather:  weather,
		soil:     soil,
		market:   market,
		memo:     NewDayMemo(cache, logger),
		tracker:  NewRequestTracker(),
		logger:   logger,
		now:      time.Now,
	}
}

// Recommend returns ranked crop recommendations, weather alerts and price
// predictions for a location and day. Only an unknown location fails the call;
// upstream failures degrade into stale flags. When opts.ClientID is set, a newer
// call from the same client supersedes this one.
func (o *RecommendationOrchestrator) Recommend(ctx context.Context, loc models.Location, date time.Time, opts models.RequestOptions) (*models.RecommendationResult, error) {
	region, err := o.catalog.Region(loc.City)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = o.now()
	}

	ticket := o.tracker.Begin(ctx, opts.ClientID)
	result, err := o.memo.Do(ticket.Context(), MemoKey(loc, date), func(c context.Context) (*models.RecommendationResult, error) {
		return o.compute(c, loc, region, date)
	})
	if err = ticket.Finish(err); err != nil {
		if errors.Is(err, models.ErrSuperseded) {
			o.logger.Info("Discarding superseded recommendation",
				zap.String("client", opts.ClientID),
				zap.String("city", region.City))
		}
		return nil, err
	}

	return o.present(result, opts), nil
}

// compute is one uncached pass of the pipeline.
func (o *RecommendationOrchestrator) compute(ctx context.Context, loc models.Location, region models.Region, date time.Time) (*models.RecommendationResult, error) {
	crops := o.catalog.Crops()
	names := cropNames(crops)

	// Step 1: Fetch weather, soil and market inputs (concurrent)
	var (
		obs          models.WeatherObservation
		soil         models.SoilProfile
		prices       []models.MarketPricePoint
		weatherStale bool
		soilStale    bool
		marketStale  bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		obs, weatherStale = o.weather.Observe(gctx, loc, region)
		return nil
	})
	g.Go(func() error {
		soil, soilStale = o.soil.Resolve(gctx, loc, region)
		return nil
	})
	g.Go(func() error {
		prices, marketStale = o.market.Prices(gctx, names)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Step 2: Weather risk
	alerts := engine.EvaluateWeather(obs)
	if !weatherStale && obs.PrecipProbability != nil {
		soil.WaterAvailability = (1-precipBlendWeight)*soil.WaterAvailability + precipBlendWeight*(*obs.PrecipProbability/100)
	}

	// Step 3: Suitability over the full catalog
	priceMap := priceIndex(prices)
	recs := o.scorer.Score(engine.ScoreInput{
		Location: loc,
		Date:     date,
		Soil:     soil,
		Crops:    crops,
		Prices:   priceMap,
	})

	// Step 4: Price predictions for every recommended crop
	histories := o.market.Histories(ctx, names)
	impact := engine.WeatherImpact(alerts, weatherStale)
	predictions := make([]models.PricePrediction, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		current, ok := priceMap[strings.ToLower(rec.CropName)]
		if !ok {
			continue
		}
		profile, err := o.catalog.Crop(rec.CropName)
		if err != nil {
			continue
		}
		factors := engine.DeriveFactors(engine.FactorInput{
			Crop:    profile,
			Date:    date,
			Alerts:  alerts,
			History: histories[strings.ToLower(rec.CropName)],
		})
		pred, err := o.provider.PredictPrice(ctx, engine.PriceInput{
			Crop:          rec.CropName,
			CurrentPrice:  current,
			Factors:       factors,
			WeatherImpact: impact,
		})
		if err != nil {
			o.logger.Warn("Price prediction unavailable", zap.String("crop", rec.CropName), zap.Error(err))
			continue
		}
		predicted := pred.PredictedPrice
		rec.PriceDataAvailable = true
		rec.PredictedPrice = &predicted
		rec.PriceTrend = pred.Trend
		predictions = append(predictions, pred)
	}

	result := &models.RecommendationResult{
		City:               region.City,
		Date:               date.Format("2006-01-02"),
		Alerts:             alerts,
		Recommendations:    recs,
		Predictions:        predictions,
		PriceDataAvailable: len(predictions) > 0,
		WeatherDataStale:   weatherStale,
		SoilDataStale:      soilStale,
		MarketDataStale:    marketStale,
		Notices:            notices(weatherStale, soilStale, marketStale),
		GeneratedAt:        o.now().UTC(),
	}
	return result, nil
}

// present applies the per-call view: localized alert text and the top-N cut.
func (o *RecommendationOrchestrator) present(result *models.RecommendationResult, opts models.RequestOptions) *models.RecommendationResult {
	result.AlertMessages = engine.LocalizedAlertMessages(result.Alerts, opts.Language)

	n := opts.TopN
	if n <= 0 && opts.Dashboard {
		n = o.config.DashboardTopN
	}
	if n <= 0 || n >= len(result.Recommendations) {
		return result
	}

	result.Recommendations = result.Recommendations[:n]
	kept := make(map[string]bool, n)
	for _, rec := range result.Recommendations {
		kept[rec.CropName] = true
	}
	predictions := make([]models.PricePrediction, 0, n)
	for _, p := range result.Predictions {
		if kept[p.CropName] {
			predictions = append(predictions, p)
		}
	}
	result.Predictions = predictions
	result.PriceDataAvailable = len(predictions) > 0
	return result
}

// PredictMandiPrices predicts prices for every catalog crop with a known current
// price. Supplied weather and price history take precedence over fetched data.
// Crops without any price are omitted.
func (o *RecommendationOrchestrator) PredictMandiPrices(ctx context.Context, req models.PredictRequest) ([]models.PricePrediction, error) {
	region, err := o.catalog.Region(req.City)
	if err != nil {
		return nil, err
	}

	crops := o.catalog.Crops()
	names := cropNames(crops)
	date := o.now()

	var (
		obs          models.WeatherObservation
		weatherStale bool
		prices       []models.MarketPricePoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if req.Weather != nil {
			obs = *req.Weather
			return nil
		}
		obs, weatherStale = o.weather.Observe(gctx, models.Location{City: region.City}, region)
		return nil
	})
	g.Go(func() error {
		prices, _ = o.market.Prices(gctx, names)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	supplied := make(map[string][]float64, len(req.HistoricalPrices))
	for crop, series := range req.HistoricalPrices {
		supplied[strings.ToLower(crop)] = series
	}
	histories := o.market.Histories(ctx, names)
	for crop, series := range supplied {
		histories[crop] = series
	}

	alerts := engine.EvaluateWeather(obs)
	impact := engine.WeatherImpact(alerts, weatherStale)
	priceMap := priceIndex(prices)

	predictions := make([]models.PricePrediction, 0, len(crops))
	for _, crop := range crops {
		key := strings.ToLower(crop.Name)
		current, ok := priceMap[key]
		if !ok {
			current, ok = lastPositive(supplied[key])
		}
		if !ok {
			continue
		}
		pred, err := o.provider.PredictPrice(ctx, engine.PriceInput{
			Crop:          crop.Name,
			CurrentPrice:  current,
			Factors:       engine.DeriveFactors(engine.FactorInput{Crop: crop, Date: date, Alerts: alerts, History: histories[key]}),
			WeatherImpact: impact,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			o.logger.Warn("Price prediction unavailable", zap.String("crop", crop.Name), zap.Error(err))
			continue
		}
		predictions = append(predictions, pred)
	}
	return predictions, nil
}

// SeasonalTrend builds the monthly price curve for a crop starting this month.
// The baseline is the current market price, or the crop's historical average.
func (o *RecommendationOrchestrator) SeasonalTrend(ctx context.Context, cropName string, months int) ([]models.SeasonalTrendPoint, error) {
	crop, err := o.catalog.Crop(cropName)
	if err != nil {
		return nil, err
	}

	prices, _ := o.market.Prices(ctx, cropNames(o.catalog.Crops()))
	baseline, ok := priceIndex(prices)[strings.ToLower(crop.Name)]
	if !ok {
		baseline = crop.HistoricalPrice
	}

	return o.provider.SeasonalTrend(ctx, engine.TrendInput{
		Crop:     crop.Name,
		Baseline: baseline,
		Start:    o.now(),
		Months:   months,
	})
}

// WeatherAlerts fetches the location's weather and evaluates its risk alerts.
func (o *RecommendationOrchestrator) WeatherAlerts(ctx context.Context, loc models.Location, language string) (*models.WeatherReport, error) {
	region, err := o.catalog.Region(loc.City)
	if err != nil {
		return nil, err
	}

	obs, stale := o.weather.Observe(ctx, loc, region)
	alerts := engine.EvaluateWeather(obs)
	return &models.WeatherReport{
		Observation:   obs,
		Alerts:        alerts,
		AlertMessages: engine.LocalizedAlertMessages(alerts, language),
		Stale:         stale,
	}, nil
}

// MarketPrices returns current prices for the catalog crops.
func (o *RecommendationOrchestrator) MarketPrices(ctx context.Context) ([]models.MarketPricePoint, bool) {
	return o.market.Prices(ctx, cropNames(o.catalog.Crops()))
}

// Cities lists the supported locations.
func (o *RecommendationOrchestrator) Cities() []string {
	return o.catalog.Cities()
}

// RefreshCache pulls live prices and drops every memoized result. A missing
// live provider is not an error; the caches are still cleared.
func (o *RecommendationOrchestrator) RefreshCache(ctx context.Context) (int, error) {
	o.memo.Clear()

	n, err := o.market.Refresh(ctx, cropNames(o.catalog.Crops()))
	if err != nil && o.market.provider != nil {
		return 0, fmt.Errorf("refresh market prices: %w", err)
	}
	return n, nil
}

// InvalidateRecommendations drops memoized results after new prices arrive.
// Cached inputs are kept.
func (o *RecommendationOrchestrator) InvalidateRecommendations() {
	o.memo.Invalidate()
}

// Helper functions

func cropNames(crops []models.CropProfile) []string {
	names := make([]string, len(crops))
	for i, c := range crops {
		names[i] = c.Name
	}
	return names
}

func priceIndex(prices []models.MarketPricePoint) map[string]float64 {
	out := make(map[string]float64, len(prices))
	for _, p := range prices {
		if p.PricePerKg > 0 {
			out[strings.ToLower(p.CropName)] = p.PricePerKg
		}
	}
	return out
}

func lastPositive(series []float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i] > 0 {
			return series[i], true
		}
	}
	return 0, false
}

func notices(weatherStale, soilStale, marketStale bool) []string {
	var out []string
	if weatherStale {
		out = append(out, noticeWeatherStale)
	}
	if soilStale {
		out = append(out, noticeSoilStale)
	}
	if marketStale {
		out = append(out, noticeMarketStale)
	}
	return out
}
