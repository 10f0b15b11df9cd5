package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"krishi-advisor/internal/engine"
	"krishi-advisor/internal/models"
)

var errNoObservation = errors.New("provider returned no observation")

// WeatherProvider returns the current observation for a location query, either
// a city name or a "lat,lon" pair.
type WeatherProvider interface {
	GetCurrent(ctx context.Context, location string) (*models.WeatherObservation, error)
}

// WeatherService fetches observations under a bounded timeout and substitutes
// regional normals when the provider is unavailable.
type WeatherService struct {
	provider WeatherProvider
	cache    *CacheService
	timeout  time.Duration
	logger   *zap.Logger
}

// NewWeatherService wires the provider. cache may be nil to disable caching.
func NewWeatherService(provider WeatherProvider, cache *CacheService, timeout time.Duration, logger *zap.Logger) *WeatherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherService{provider: provider, cache: cache, timeout: timeout, logger: logger}
}

// Observe returns the live observation, or the neutral regional observation with
// stale set when the provider fails or times out. Coordinates on loc take
// precedence over the city name when querying the provider.
func (s *WeatherService) Observe(ctx context.Context, loc models.Location, region models.Region) (models.WeatherObservation, bool) {
	if s.provider == nil {
		return engine.NeutralObservation(region), true
	}

	query := weatherQuery(loc, region)
	if s.cache != nil {
		if obs, found := s.cache.GetWeather(query); found {
			return obs, false
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	obs, err := s.provider.GetCurrent(fetchCtx, query)
	if err == nil && obs == nil {
		err = errNoObservation
	}
	if err != nil {
		s.logger.Warn("Weather provider unavailable, using regional normals",
			zap.String("city", region.City),
			zap.String("query", query),
			zap.Error(&models.UpstreamError{Source: "weather", Err: err}))
		return engine.NeutralObservation(region), true
	}

	out := *obs
	out.City = region.City
	if s.cache != nil {
		s.cache.SetWeather(query, out)
	}
	return out, false
}

func weatherQuery(loc models.Location, region models.Region) string {
	if loc.Latitude != nil && loc.Longitude != nil {
		return fmt.Sprintf("%.4f,%.4f", *loc.Latitude, *loc.Longitude)
	}
	return region.City
}
