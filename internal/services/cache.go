package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"

	"krishi-advisor/internal/config"
	"krishi-advisor/internal/models"
)

const (
	recommendationsCollection = "recommendations"
	marketCollection          = "market_prices"
	marketSnapshotDoc         = "latest"
	marketSnapshotTTL         = 1 * time.Hour
	weatherTTL                = 1 * time.Hour
	soilTTL                   = 6 * time.Hour
)

// Generic in-memory cache with type safety
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]*cacheItem[V]
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

func NewCache[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		items: make(map[K]*cacheItem[V]),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}

	// Start cleanup goroutine
	go c.cleanup(5 * time.Minute)

	return c
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || time.Now().After(item.expiration) {
		var zero V
		return zero, false
	}

	return item.value, true
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &cacheItem[V]{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*cacheItem[V])
}

// Len counts entries, including expired ones not yet swept.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *Cache[K, V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache[K, V]) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, item := range c.items {
				if now.After(item.expiration) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// MarketSnapshot is the last fetched price set together with the crops it was
// fetched for. Crops is what makes a snapshot reusable for a later request.
type MarketSnapshot struct {
	Crops     []string                  `firestore:"crops"`
	Prices    []models.MarketPricePoint `firestore:"prices"`
	FetchedAt time.Time                 `firestore:"fetchedAt"`
}

// Covers reports whether every crop was part of the fetch behind the snapshot.
func (m MarketSnapshot) Covers(crops []string) bool {
	known := make(map[string]bool, len(m.Crops))
	for _, c := range m.Crops {
		known[strings.ToLower(c)] = true
	}
	for _, c := range crops {
		if !known[strings.ToLower(c)] {
			return false
		}
	}
	return true
}

// Select returns the snapshot prices of the given crops, in their order.
func (m MarketSnapshot) Select(crops []string) []models.MarketPricePoint {
	byCrop := make(map[string]models.MarketPricePoint, len(m.Prices))
	for _, p := range m.Prices {
		byCrop[strings.ToLower(p.CropName)] = p
	}
	out := make([]models.MarketPricePoint, 0, len(crops))
	for _, c := range crops {
		if p, ok := byCrop[strings.ToLower(c)]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Merge overlays next on m. Prices in next replace those of the same crop.
func (m MarketSnapshot) Merge(next MarketSnapshot) MarketSnapshot {
	out := MarketSnapshot{FetchedAt: next.FetchedAt}
	seen := make(map[string]bool)
	for _, c := range append(append([]string(nil), m.Crops...), next.Crops...) {
		if key := strings.ToLower(c); !seen[key] {
			seen[key] = true
			out.Crops = append(out.Crops, c)
		}
	}

	replaced := make(map[string]models.MarketPricePoint, len(next.Prices))
	for _, p := range next.Prices {
		replaced[strings.ToLower(p.CropName)] = p
	}
	for _, p := range m.Prices {
		key := strings.ToLower(p.CropName)
		if r, ok := replaced[key]; ok {
			p = r
			delete(replaced, key)
		}
		out.Prices = append(out.Prices, p)
	}
	for _, p := range next.Prices {
		if _, ok := replaced[strings.ToLower(p.CropName)]; ok {
			out.Prices = append(out.Prices, p)
		}
	}
	return out
}

// CacheService handles both in-memory and Firestore caching
type CacheService struct {
	logger          *zap.Logger
	ttl             time.Duration
	firestoreClient *firestore.Client
	resultCache     *Cache[string, *models.RecommendationResult]
	marketCache     *Cache[string, MarketSnapshot]
	weatherCache    *Cache[string, models.WeatherObservation]
	soilCache       *Cache[string, models.SoilReading]

	mu               sync.RWMutex
	clearedAt        time.Time
	resultsClearedAt time.Time
}

// NewCacheService builds the cache. Firestore is used only when a project is configured;
// a client that fails to start leaves the service in memory-only mode.
func NewCacheService(ctx context.Context, cfg *config.Config, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}

	var client *firestore.Client
	if cfg.FirestoreProject != "" {
		var err error
		client, err = firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			// Log error but don't fail - fallback to in-memory only
			logger.Warn("Failed to initialize Firestore", zap.Error(err))
			client = nil
		}
	}

	return &CacheService{
		logger:          logger,
		ttl:             cfg.CacheTTL,
		firestoreClient: client,
		resultCache:     NewCache[string, *models.RecommendationResult](cfg.CacheTTL),
		marketCache:     NewCache[string, MarketSnapshot](marketSnapshotTTL),
		weatherCache:    NewCache[string, models.WeatherObservation](weatherTTL),
		soilCache:       NewCache[string, models.SoilReading](soilTTL),
	}
}

// FirestoreEnabled reports whether a second-level store is attached.
func (s *CacheService) FirestoreEnabled() bool {
	return s.firestoreClient != nil
}

// GetRecommendation retrieves a memoized result for a (location, day) key.
func (s *CacheService) GetRecommendation(ctx context.Context, key string) (*models.RecommendationResult, bool) {
	// Try in-memory cache
	if result, found := s.resultCache.Get(key); found {
		return result, true
	}

	// Try Firestore
	if s.firestoreClient != nil {
		doc, err := s.firestoreClient.Collection(recommendationsCollection).Doc(docID(key)).Get(ctx)
		if err == nil {
			var result models.RecommendationResult
			if err := doc.DataTo(&result); err == nil && s.fresh(result.GeneratedAt, s.ttl, true) {
				s.resultCache.Set(key, &result)
				return &result, true
			}
		}
	}

	return nil, false
}

// SetRecommendation stores a result in memory and, when configured, in Firestore.
func (s *CacheService) SetRecommendation(ctx context.Context, key string, result *models.RecommendationResult) error {
	s.resultCache.Set(key, result)

	if s.firestoreClient != nil {
		_, err := s.firestoreClient.Collection(recommendationsCollection).Doc(docID(key)).Set(ctx, result)
		return err
	}

	return nil
}

// GetMarketSnapshot returns the last live price set, if still fresh.
func (s *CacheService) GetMarketSnapshot(ctx context.Context) (MarketSnapshot, bool) {
	if snap, found := s.marketCache.Get(marketSnapshotDoc); found {
		return snap, true
	}

	if s.firestoreClient != nil {
		doc, err := s.firestoreClient.Collection(marketCollection).Doc(marketSnapshotDoc).Get(ctx)
		if err == nil {
			var snap MarketSnapshot
			if err := doc.DataTo(&snap); err == nil && s.fresh(snap.FetchedAt, marketSnapshotTTL, false) {
				s.marketCache.Set(marketSnapshotDoc, snap)
				return snap, true
			}
		}
	}

	return MarketSnapshot{}, false
}

// SetMarketSnapshot stores the latest live price set.
func (s *CacheService) SetMarketSnapshot(ctx context.Context, snap MarketSnapshot) error {
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	s.marketCache.Set(marketSnapshotDoc, snap)

	if s.firestoreClient != nil {
		_, err := s.firestoreClient.Collection(marketCollection).Doc(marketSnapshotDoc).Set(ctx, snap)
		return err
	}

	return nil
}

// GetWeather returns a recent observation stored under a provider query.
func (s *CacheService) GetWeather(query string) (models.WeatherObservation, bool) {
	return s.weatherCache.Get(strings.ToLower(query))
}

func (s *CacheService) SetWeather(query string, obs models.WeatherObservation) {
	s.weatherCache.Set(strings.ToLower(query), obs)
}

// GetSoil returns a recent soil reading for a polygon.
func (s *CacheService) GetSoil(polygonID string) (models.SoilReading, bool) {
	return s.soilCache.Get(polygonID)
}

func (s *CacheService) SetSoil(reading models.SoilReading) {
	s.soilCache.Set(reading.PolygonID, reading)
}

// Clear invalidates every cached entry. Firestore documents written before the
// call are ignored from then on.
func (s *CacheService) Clear() {
	s.mu.Lock()
	s.clearedAt = time.Now()
	s.resultsClearedAt = s.clearedAt
	s.mu.Unlock()

	s.resultCache.Clear()
	s.marketCache.Clear()
	s.weatherCache.Clear()
	s.soilCache.Clear()
}

// ClearRecommendations drops memoized results only; inputs such as the market
// snapshot stay cached.
func (s *CacheService) ClearRecommendations() {
	s.mu.Lock()
	s.resultsClearedAt = time.Now()
	s.mu.Unlock()

	s.resultCache.Clear()
}

// Close stops the cleanup goroutines and closes the Firestore client
func (s *CacheService) Close() error {
	s.resultCache.Close()
	s.marketCache.Close()
	s.weatherCache.Close()
	s.soilCache.Close()
	if s.firestoreClient != nil {
		return s.firestoreClient.Close()
	}
	return nil
}

func (s *CacheService) fresh(at time.Time, ttl time.Duration, result bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.clearedAt
	if result && s.resultsClearedAt.After(cutoff) {
		cutoff = s.resultsClearedAt
	}
	return time.Since(at) < ttl && at.After(cutoff)
}

// docID maps a cache key to a Firestore document ID, which may not contain '/'.
func docID(key string) string {
	return strings.NewReplacer("/", "_", "|", "_", " ", "-").Replace(strings.ToLower(key))
}
