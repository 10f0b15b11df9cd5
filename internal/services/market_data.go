package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"krishi-advisor/internal/config"
	"krishi-advisor/internal/models"
)

const (
	localMandi  = "Local Mandi"
	historyDays = 30
)

// PriceProvider returns the current mandi price of one commodity.
type PriceProvider interface {
	GetPrice(ctx context.Context, commodity string) (*models.MarketPricePoint, error)
}

// PriceHistory persists daily prices and serves them back oldest first.
type PriceHistory interface {
	Record(ctx context.Context, points []models.MarketPricePoint) error
	History(ctx context.Context, crop string, days int) ([]float64, error)
}

var staticPrices = []models.MarketPricePoint{
	{CropName: "Rice", PricePerKg: 25, PriceTrend: "stable"},
	{CropName: "Wheat", PricePerKg: 22, PriceTrend: "rising"},
	{CropName: "Cotton", PricePerKg: 45, PriceTrend: "falling"},
	{CropName: "Sugarcane", PricePerKg: 3, PriceTrend: "stable"},
	{CropName: "Maize", PricePerKg: 18, PriceTrend: "rising"},
	{CropName: "Onion", PricePerKg: 15, PriceTrend: "rising"},
	{CropName: "Potato", PricePerKg: 12, PriceTrend: "stable"},
	{CropName: "Tomato", PricePerKg: 20, PriceTrend: "falling"},
}

// StaticSnapshot is the last-known "Local Mandi" price list served when no live
// provider is reachable.
func StaticSnapshot(now time.Time) []models.MarketPricePoint {
	out := make([]models.MarketPricePoint, len(staticPrices))
	for i, p := range staticPrices {
		p.MarketName = localMandi
		p.UpdatedAt = now
		out[i] = p
	}
	return out
}

// MarketDataService handles concurrent mandi price fetching
type MarketDataService struct {
	provider   PriceProvider
	history    PriceHistory
	cache      *CacheService
	timeout    time.Duration
	logger     *zap.Logger
	workerPool chan struct{} // Semaphore for bounded concurrency
}

// NewMarketDataService wires the price sources. provider and history may be nil.
func NewMarketDataService(cfg *config.Config, provider PriceProvider, history PriceHistory, cache *CacheService, logger *zap.Logger) *MarketDataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.MaxConcurrentFetches
	if workers <= 0 {
		workers = 1
	}
	return &MarketDataService{
		provider:   provider,
		history:    history,
		cache:      cache,
		timeout:    cfg.FetchTimeout,
		logger:     logger,
		workerPool: make(chan struct{}, workers),
	}
}

// HistoryEnabled reports whether a price history store is attached.
func (s *MarketDataService) HistoryEnabled() bool {
	return s.history != nil
}

// Prices returns current prices for the crops. stale is set when the live
// provider failed for every crop and the static snapshot was served instead.
// Crops the provider misses are filled from the snapshot when it has them.
// A cached snapshot is reused only when it was fetched for all requested crops.
func (s *MarketDataService) Prices(ctx context.Context, crops []string) ([]models.MarketPricePoint, bool) {
	// Try cache first
	snap, cached := s.cache.GetMarketSnapshot(ctx)
	if cached && snap.Covers(crops) {
		return snap.Select(crops), false
	}

	if s.provider == nil {
		return StaticSnapshot(time.Now().UTC()), false
	}

	live, errs := s.FetchBatch(ctx, crops)
	if len(live) == 0 {
		s.logger.Warn("Mandi price provider unavailable, serving static snapshot",
			zap.Int("failures", len(errs)),
			zap.Error(firstErr(errs)))
		return StaticSnapshot(time.Now().UTC()), true
	}

	merged := mergeSnapshot(crops, live)
	if len(errs) == 0 {
		next := MarketSnapshot{Crops: crops, Prices: merged, FetchedAt: time.Now()}
		if cached {
			next = snap.Merge(next)
		}
		if err := s.cache.SetMarketSnapshot(ctx, next); err != nil {
			s.logger.Warn("Failed to cache market snapshot", zap.Error(err))
		}
	}
	return merged, false
}

// Refresh pulls live prices, records them in the history store and replaces the
// cached snapshot.
func (s *MarketDataService) Refresh(ctx context.Context, crops []string) (int, error) {
	if s.provider == nil {
		return 0, fmt.Errorf("mandi prices: %w", models.ErrNotConfigured)
	}

	live, errs := s.FetchBatch(ctx, crops)
	if len(live) == 0 {
		return 0, fmt.Errorf("all price fetches failed: %w", firstErr(errs))
	}

	points := make([]models.MarketPricePoint, 0, len(live))
	for _, crop := range crops {
		if p, ok := live[strings.ToLower(crop)]; ok {
			points = append(points, *p)
		}
	}

	if s.history != nil {
		if err := s.history.Record(ctx, points); err != nil {
			return 0, fmt.Errorf("record price history: %w", err)
		}
	}
	snap := MarketSnapshot{Crops: crops, Prices: mergeSnapshot(crops, live), FetchedAt: time.Now()}
	if err := s.cache.SetMarketSnapshot(ctx, snap); err != nil {
		s.logger.Warn("Failed to cache market snapshot", zap.Error(err))
	}
	return len(points), nil
}

// FetchBatch fetches prices for multiple crops concurrently using worker pool pattern.
// Results are keyed by lower-cased crop name.
func (s *MarketDataService) FetchBatch(ctx context.Context, crops []string) (map[string]*models.MarketPricePoint, []error) {
	results := make(map[string]*models.MarketPricePoint)
	var wg sync.WaitGroup

	// Channels for results and errors
	resultCh := make(chan *models.MarketPricePoint, len(crops))
	errorCh := make(chan error, len(crops))

	// Launch workers
	for _, crop := range crops {
		wg.Add(1)

		go func(name string) {
			defer wg.Done()

			// Acquire worker slot (bounded concurrency)
			select {
			case s.workerPool <- struct{}{}:
			case <-ctx.Done():
				errorCh <- fmt.Errorf("failed to fetch %s: %w", name, ctx.Err())
				return
			}
			defer func() { <-s.workerPool }()

			// Fetch with timeout
			fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			point, err := s.provider.GetPrice(fetchCtx, name)
			if err != nil {
				errorCh <- fmt.Errorf("failed to fetch %s: %w", name, err)
				return
			}
			point.CropName = name
			resultCh <- point
		}(crop)
	}

	// Wait for all workers to complete
	wg.Wait()
	close(resultCh)
	close(errorCh)

	for point := range resultCh {
		results[strings.ToLower(point.CropName)] = point
	}

	var errs []error
	for err := range errorCh {
		errs = append(errs, &models.UpstreamError{Source: "mandi prices", Err: err})
	}

	return results, errs
}

// History returns recent daily prices for a crop, or nil without a history store.
func (s *MarketDataService) History(ctx context.Context, crop string) []float64 {
	if s.history == nil {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prices, err := s.history.History(fetchCtx, crop, historyDays)
	if err != nil {
		s.logger.Warn("Price history unavailable", zap.String("crop", crop), zap.Error(err))
		return nil
	}
	return prices
}

// Histories loads the history of several crops concurrently.
func (s *MarketDataService) Histories(ctx context.Context, crops []string) map[string][]float64 {
	out := make(map[string][]float64, len(crops))
	if s.history == nil {
		return out
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cap(s.workerPool))
	for _, crop := range crops {
		crop := crop
		g.Go(func() error {
			prices := s.History(gctx, crop)
			mu.Lock()
			out[strings.ToLower(crop)] = prices
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// mergeSnapshot orders live prices by crop and fills gaps from the static snapshot.
func mergeSnapshot(crops []string, live map[string]*models.MarketPricePoint) []models.MarketPricePoint {
	static := make(map[string]models.MarketPricePoint, len(staticPrices))
	for _, p := range StaticSnapshot(time.Now().UTC()) {
		static[strings.ToLower(p.CropName)] = p
	}

	out := make([]models.MarketPricePoint, 0, len(crops))
	for _, crop := range crops {
		key := strings.ToLower(crop)
		if p, ok := live[key]; ok {
			out = append(out, *p)
		} else if p, ok := static[key]; ok {
			out = append(out, p)
		}
	}
	return out
}

func firstErr(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}
