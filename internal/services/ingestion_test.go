package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"krishi-advisor/internal/models"
)

func TestNewIngestorRejectsBadSchedule(t *testing.T) {
	_, err := NewIngestor("every six hours", newMarket(t, nil, nil), []string{"Rice"}, nil)
	assert.Error(t, err)
}

func TestIngestorRunOnce(t *testing.T) {
	provider := priceFunc(func(_ context.Context, commodity string) (*models.MarketPricePoint, error) {
		return &models.MarketPricePoint{PricePerKg: 21, MarketName: "Khanna", UpdatedAt: testDate}, nil
	})
	history := &memHistory{}
	in, err := NewIngestor("0 */6 * * *", newMarket(t, provider, history), []string{"Rice", "Wheat"}, nil)
	require.NoError(t, err)

	at := time.Date(2025, time.July, 20, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.July, 20, 6, 0, 0, 0, time.UTC), in.NextRun(at))

	n, err := in.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, history.recorded, 2)

	refreshed := 0
	in.OnRefresh(func() { refreshed++ })
	_, err = in.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed)

	last, lastErr := in.LastRun()
	assert.False(t, last.IsZero())
	assert.NoError(t, lastErr)

	in.Start()
	in.Stop()
}

func TestIngestorRecordsFailure(t *testing.T) {
	in, err := NewIngestor("@hourly", newMarket(t, nil, nil), []string{"Rice"}, nil)
	require.NoError(t, err)

	in.OnRefresh(func() { t.Error("refresh hook ran after a failed cycle") })
	_, err = in.RunOnce(context.Background())
	require.Error(t, err)
	_, lastErr := in.LastRun()
	assert.Equal(t, err, lastErr)
}
