package handlers

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"krishi-advisor/internal/models"
	"krishi-advisor/internal/services"
)

const (
	clientIDHeader      = "X-Client-ID"
	defaultTrendMonths  = 6
	recommendTimeout    = 30 * time.Second
	lightRequestTimeout = 10 * time.Second
)

type RecommendationHandler struct {
	orchestrator *services.RecommendationOrchestrator
}

func NewRecommendationHandler(orchestrator *services.RecommendationOrchestrator) *RecommendationHandler {
	return &RecommendationHandler{
		orchestrator: orchestrator,
	}
}

// GetRecommendations handles GET /v1/recommendations/:city
func (h *RecommendationHandler) GetRecommendations(c *fiber.Ctx) error {
	return h.recommend(c, false)
}

// GetDashboard handles GET /v1/dashboard/:city
func (h *RecommendationHandler) GetDashboard(c *fiber.Ctx) error {
	return h.recommend(c, true)
}

func (h *RecommendationHandler) recommend(c *fiber.Ctx, dashboard bool) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), recommendTimeout)
	defer cancel()

	loc, err := locationFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	var date time.Time
	if raw := c.Query("date"); raw != "" {
		date, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return writeError(c, models.NewValidationError("date", raw, "expected YYYY-MM-DD"))
		}
	}

	opts := models.RequestOptions{
		Language:  c.Query("lang", "en"),
		TopN:      c.QueryInt("top", 0),
		Dashboard: dashboard,
		ClientID:  c.Get(clientIDHeader),
	}
	if opts.TopN < 0 {
		return writeError(c, models.NewValidationError("top", c.Query("top"), "must not be negative"))
	}

	result, err := h.orchestrator.Recommend(ctx, loc, date, opts)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(result)
}

// GetWeather handles GET /v1/weather/:city
func (h *RecommendationHandler) GetWeather(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), lightRequestTimeout)
	defer cancel()

	loc, err := locationFrom(c)
	if err != nil {
		return writeError(c, err)
	}

	report, err := h.orchestrator.WeatherAlerts(ctx, loc, c.Query("lang", "en"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(report)
}

// PredictPrices handles POST /v1/predictions
func (h *RecommendationHandler) PredictPrices(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), recommendTimeout)
	defer cancel()

	var req models.PredictRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
			Code:    400,
		})
	}

	// Validate request
	if strings.TrimSpace(req.City) == "" {
		return c.Status(400).JSON(models.ErrorResponse{
			Error:   "City is required",
			Message: "Please provide the city to predict mandi prices for",
			Code:    400,
		})
	}

	predictions, err := h.orchestrator.PredictMandiPrices(ctx, req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"city":        req.City,
		"predictions": predictions,
	})
}

// GetSeasonalTrend handles GET /v1/seasonal-trend/:crop
func (h *RecommendationHandler) GetSeasonalTrend(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), lightRequestTimeout)
	defer cancel()

	months := defaultTrendMonths
	if raw := c.Query("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return writeError(c, models.NewValidationError("months", raw, "must be an integer"))
		}
		months = n
	}

	crop := c.Params("crop")
	points, err := h.orchestrator.SeasonalTrend(ctx, crop, months)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"crop":   crop,
		"months": months,
		"trend":  points,
	})
}

// GetCities handles GET /v1/cities
func (h *RecommendationHandler) GetCities(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"cities": h.orchestrator.Cities(),
	})
}

// locationFrom reads the city path parameter and the optional polygon_id and
// lat/lon query parameters. Coordinates must come as a pair.
func locationFrom(c *fiber.Ctx) (models.Location, error) {
	loc := models.Location{
		City:      c.Params("city"),
		PolygonID: c.Query("polygon_id"),
	}
	for _, p := range []struct {
		key   string
		limit float64
		dst   **float64
	}{{"lat", 90, &loc.Latitude}, {"lon", 180, &loc.Longitude}} {
		raw := c.Query(p.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) {
			return loc, models.NewValidationError(p.key, raw, "must be a number")
		}
		if math.Abs(v) > p.limit {
			return loc, models.NewValidationError(p.key, raw, "out of range")
		}
		*p.dst = &v
	}
	if (loc.Latitude == nil) != (loc.Longitude == nil) {
		return loc, models.NewValidationError("lat", c.Query("lat"), "lat and lon must be given together")
	}
	return loc, nil
}
