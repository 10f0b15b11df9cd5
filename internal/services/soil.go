package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"krishi-advisor/internal/models"
	"krishi-advisor/pkg/agromonitoring"
)

// Volumetric moisture treated as fully available water.
const fieldCapacity = 0.4

// SoilProvider returns live soil readings for a field polygon.
type SoilProvider interface {
	GetSoil(ctx context.Context, polygonID string) (*agromonitoring.Soil, error)
}

// FieldRegistry registers field outlines with the soil provider.
type FieldRegistry interface {
	CreatePolygon(ctx context.Context, name string, coordinates [][][]float64) (*agromonitoring.Polygon, error)
}

// SoilService resolves the soil and water context of a location.
type SoilService struct {
	provider SoilProvider
	cache    *CacheService
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewSoilService wires the provider. cache may be nil to disable caching. When
// provider also implements FieldRegistry, fields can be registered through it.
func NewSoilService(provider SoilProvider, cache *CacheService, timeout time.Duration, logger *zap.Logger) *SoilService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SoilService{provider: provider, cache: cache, timeout: timeout, logger: logger, now: time.Now}
}

// Resolve starts from the region's default profile and refines water availability
// from live moisture when the location names a polygon. stale is set only when a
// live reading was attempted and failed.
func (s *SoilService) Resolve(ctx context.Context, loc models.Location, region models.Region) (models.SoilProfile, bool) {
	profile := models.SoilProfile{
		SoilType:          region.SoilType,
		WaterAvailability: region.WaterAvailability,
		Source:            "regional-profile",
	}
	if loc.PolygonID == "" || s.provider == nil {
		return profile, false
	}

	reading, err := s.Reading(ctx, loc.PolygonID)
	if err != nil {
		s.logger.Warn("Soil provider unavailable, using regional profile",
			zap.String("city", region.City),
			zap.String("polygon", loc.PolygonID),
			zap.Error(err))
		return profile, true
	}

	moisture := reading.Moisture
	surface := reading.SurfaceTempC
	profile.Moisture = &moisture
	profile.SurfaceTempC = &surface
	profile.WaterAvailability = clampUnit(moisture / fieldCapacity)
	profile.Source = "agromonitoring"
	return profile, false
}

// Reading returns the latest soil reading for a polygon, served from the cache
// for six hours after a successful fetch.
func (s *SoilService) Reading(ctx context.Context, polygonID string) (models.SoilReading, error) {
	polygonID = strings.TrimSpace(polygonID)
	if polygonID == "" {
		return models.SoilReading{}, models.NewValidationError("polygon_id", "", "must not be empty")
	}
	if s.provider == nil {
		return models.SoilReading{}, &models.UpstreamError{Source: "soil", Err: models.ErrNotConfigured}
	}
	if s.cache != nil {
		if reading, found := s.cache.GetSoil(polygonID); found {
			return reading, nil
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	soil, err := s.provider.GetSoil(fetchCtx, polygonID)
	if err == nil && soil == nil {
		err = fmt.Errorf("no soil reading for polygon %s", polygonID)
	}
	if err != nil {
		return models.SoilReading{}, &models.UpstreamError{Source: "soil", Err: err}
	}

	reading := models.SoilReading{
		PolygonID:    polygonID,
		Moisture:     soil.Moisture,
		SurfaceTempC: soil.SurfaceTempC,
		Depth10TempC: soil.Depth10TempC,
		ObservedAt:   soil.ObservedAt,
	}
	if s.cache != nil {
		s.cache.SetSoil(reading)
	}
	return reading, nil
}

// RegisterField validates a field outline and registers it with the provider.
func (s *SoilService) RegisterField(ctx context.Context, req models.PolygonCreate) (*models.FieldPolygon, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, models.NewValidationError("name", "", "must not be empty")
	}
	if err := validateRings(req.Coordinates); err != nil {
		return nil, err
	}

	registry, ok := s.provider.(FieldRegistry)
	if !ok {
		return nil, &models.UpstreamError{Source: "soil", Err: models.ErrNotConfigured}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	polygon, err := registry.CreatePolygon(fetchCtx, name, req.Coordinates)
	if err != nil {
		return nil, &models.UpstreamError{Source: "soil", Err: err}
	}

	s.logger.Info("Registered field polygon",
		zap.String("polygon", polygon.ID),
		zap.String("farmer", req.FarmerID),
		zap.Float64("area_ha", polygon.Area))

	return &models.FieldPolygon{
		ID:          polygon.ID,
		Name:        name,
		Coordinates: req.Coordinates,
		FarmerID:    req.FarmerID,
		Area:        polygon.Area,
		Center:      polygon.Center,
		CreatedAt:   s.now().UTC(),
	}, nil
}

// validateRings checks GeoJSON polygon rings: at least four [lon, lat] points,
// in range, with the first point repeated last.
func validateRings(rings [][][]float64) error {
	if len(rings) == 0 {
		return models.NewValidationError("coordinates", "", "at least one ring is required")
	}
	for i, ring := range rings {
		if len(ring) < 4 {
			return models.NewValidationError("coordinates", fmt.Sprintf("ring %d", i), "needs at least 4 points")
		}
		for _, pt := range ring {
			if len(pt) != 2 || math.Abs(pt[0]) > 180 || math.Abs(pt[1]) > 90 {
				return models.NewValidationError("coordinates", fmt.Sprintf("ring %d", i), "points must be [lon, lat]")
			}
		}
		first, last := ring[0], ring[len(ring)-1]
		if first[0] != last[0] || first[1] != last[1] {
			return models.NewValidationError("coordinates", fmt.Sprintf("ring %d", i), "ring must be closed")
		}
	}
	return nil
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
