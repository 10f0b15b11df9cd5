package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"krishi-advisor/internal/models"
)

func newMarket(t *testing.T, provider PriceProvider, history PriceHistory) *MarketDataService {
	t.Helper()
	cfg := testConfig(100 * time.Millisecond)
	cache := NewCacheService(context.Background(), cfg, nil)
	t.Cleanup(func() { _ = cache.Close() })
	return NewMarketDataService(cfg, provider, history, cache, nil)
}

func TestStaticSnapshot(t *testing.T) {
	snap := StaticSnapshot(testDate)
	require.Len(t, snap, 8)
	assert.Equal(t, "Rice", snap[0].CropName)
	assert.Equal(t, 25.0, snap[0].PricePerKg)
	for _, p := range snap {
		assert.Equal(t, "Local Mandi", p.MarketName)
		assert.Equal(t, testDate, p.UpdatedAt)
	}
}

func TestPricesWithoutProvider(t *testing.T) {
	m := newMarket(t, nil, nil)

	prices, stale := m.Prices(context.Background(), []string{"Rice", "Mustard"})
	assert.False(t, stale)
	assert.Len(t, prices, 8)
}

func TestPricesPartialFailureFillsFromSnapshot(t *testing.T) {
	provider := priceFunc(func(_ context.Context, commodity string) (*models.MarketPricePoint, error) {
		if commodity == "Rice" {
			return &models.MarketPricePoint{PricePerKg: 31.5, MarketName: "Azadpur", PriceTrend: "rising"}, nil
		}
		return nil, errors.New("no price records")
	})
	m := newMarket(t, provider, nil)

	prices, stale := m.Prices(context.Background(), []string{"Rice", "Wheat", "Mustard"})
	assert.False(t, stale)
	require.Len(t, prices, 2)
	assert.Equal(t, models.MarketPricePoint{CropName: "Rice", PricePerKg: 31.5, MarketName: "Azadpur", PriceTrend: "rising"}, prices[0])
	assert.Equal(t, "Wheat", prices[1].CropName)
	assert.Equal(t, "Local Mandi", prices[1].MarketName)
}

func TestPricesCachedAfterCleanFetch(t *testing.T) {
	var calls atomic.Int32
	provider := priceFunc(func(_ context.Context, commodity string) (*models.MarketPricePoint, error) {
		calls.Add(1)
		return &models.MarketPricePoint{PricePerKg: 20, MarketName: "Azadpur"}, nil
	})
	m := newMarket(t, provider, nil)
	crops := []string{"Rice", "Wheat"}

	_, _ = m.Prices(context.Background(), crops)
	_, _ = m.Prices(context.Background(), crops)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPricesDoesNotNarrowCachedSnapshot(t *testing.T) {
	var calls atomic.Int32
	provider := priceFunc(func(_ context.Context, commodity string) (*models.MarketPricePoint, error) {
		calls.Add(1)
		return &models.MarketPricePoint{PricePerKg: 30, MarketName: "Azadpur"}, nil
	})
	m := newMarket(t, provider, nil)
	ctx := context.Background()

	one, _ := m.Prices(ctx, []string{"Rice"})
	require.Len(t, one, 1)

	all := []string{"Rice", "Wheat", "Mustard"}
	prices, stale := m.Prices(ctx, all)
	assert.False(t, stale)
	require.Len(t, prices, 3)
	for i, p := range prices {
		assert.Equal(t, all[i], p.CropName)
		assert.Equal(t, 30.0, p.PricePerKg)
	}
	assert.Equal(t, int32(4), calls.Load())

	// Both requests are now answered from the merged snapshot.
	again, _ := m.Prices(ctx, all)
	assert.Equal(t, prices, again)
	rice, _ := m.Prices(ctx, []string{"Rice"})
	assert.Equal(t, prices[:1], rice)
	assert.Equal(t, int32(4), calls.Load())
}

func TestFetchBatchTimesOutSlowProvider(t *testing.T) {
	slow := priceFunc(func(ctx context.Context, _ string) (*models.MarketPricePoint, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	m := newMarket(t, slow, nil)

	results, errs := m.FetchBatch(context.Background(), []string{"Rice", "Wheat", "Maize", "Onion", "Potato", "Tomato"})
	assert.Empty(t, results)
	require.Len(t, errs, 6)
	for _, err := range errs {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		var up *models.UpstreamError
		assert.ErrorAs(t, err, &up)
	}
}

func TestRefreshRequiresProvider(t *testing.T) {
	m := newMarket(t, nil, &memHistory{})
	_, err := m.Refresh(context.Background(), []string{"Rice"})
	assert.Error(t, err)
}

func TestHistories(t *testing.T) {
	history := &memHistory{series: map[string][]float64{"rice": {24, 25, 26}}}
	m := newMarket(t, nil, history)

	assert.True(t, m.HistoryEnabled())
	got := m.Histories(context.Background(), []string{"Rice", "Wheat"})
	assert.Equal(t, []float64{24, 25, 26}, got["rice"])
	assert.Nil(t, got["wheat"])

	assert.Empty(t, newMarket(t, nil, nil).Histories(context.Background(), []string{"Rice"}))
}
