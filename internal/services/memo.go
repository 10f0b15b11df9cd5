package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"krishi-advisor/internal/models"
)

// DayMemo memoizes recommendation results per (location, calendar day). Concurrent
// callers for the same key share one in-flight computation.
type DayMemo struct {
	cache  *CacheService
	group  singleflight.Group
	logger *zap.Logger
}

func NewDayMemo(cache *CacheService, logger *zap.Logger) *DayMemo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DayMemo{cache: cache, logger: logger}
}

// MemoKey builds the memo key for a location and day.
func MemoKey(loc models.Location, date time.Time) string {
	key := fmt.Sprintf("%s|%s", strings.ToLower(strings.TrimSpace(loc.City)), date.Format("2006-01-02"))
	if loc.Latitude != nil && loc.Longitude != nil {
		key += fmt.Sprintf("|%.4f,%.4f", *loc.Latitude, *loc.Longitude)
	}
	if loc.PolygonID != "" {
		key += "|" + loc.PolygonID
	}
	return key
}

// Do returns the memoized result for key or computes it with fn. The computation
// is detached from the caller's cancellation so that a caller giving up does not
// fail the others sharing it; each caller still returns as soon as its own ctx ends.
// Results built from stale upstream data are shared with concurrent callers but
// not stored.
func (m *DayMemo) Do(ctx context.Context, key string, fn func(context.Context) (*models.RecommendationResult, error)) (*models.RecommendationResult, error) {
	if cached, found := m.cache.GetRecommendation(ctx, key); found {
		out := cloneResult(cached)
		out.CacheHit = true
		return out, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (interface{}, error) {
		result, err := fn(detached)
		if err != nil {
			return nil, err
		}
		if !result.WeatherDataStale && !result.SoilDataStale && !result.MarketDataStale {
			if err := m.cache.SetRecommendation(detached, key, result); err != nil {
				m.logger.Warn("Failed to persist recommendation", zap.String("key", key), zap.Error(err))
			}
		}
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		out := cloneResult(res.Val.(*models.RecommendationResult))
		out.CacheHit = res.Shared
		return out, nil
	}
}

// Clear drops every stored result along with the cached inputs.
func (m *DayMemo) Clear() {
	m.cache.Clear()
}

// Invalidate drops stored results only.
func (m *DayMemo) Invalidate() {
	m.cache.ClearRecommendations()
}

func cloneResult(r *models.RecommendationResult) *models.RecommendationResult {
	out := *r
	out.Alerts = append([]string(nil), r.Alerts...)
	out.AlertMessages = append([]string(nil), r.AlertMessages...)
	out.Recommendations = append([]models.CropRecommendation(nil), r.Recommendations...)
	out.Predictions = append([]models.PricePrediction(nil), r.Predictions...)
	out.Notices = append([]string(nil), r.Notices...)
	return &out
}
