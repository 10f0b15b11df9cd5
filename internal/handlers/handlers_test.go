package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"krishi-advisor/internal/catalog"
	"krishi-advisor/internal/config"
	"krishi-advisor/internal/engine"
	"krishi-advisor/internal/models"
	"krishi-advisor/internal/services"
	"krishi-advisor/pkg/agromonitoring"
)

type fakeAgro struct {
	soilCalls int
}

func (f *fakeAgro) GetSoil(_ context.Context, polygonID string) (*agromonitoring.Soil, error) {
	f.soilCalls++
	if polygonID != "poly-1" {
		return nil, errors.New("agromonitoring returned status 404")
	}
	return &agromonitoring.Soil{Moisture: 0.3, SurfaceTempC: 27.5, Depth10TempC: 24}, nil
}

func (f *fakeAgro) CreatePolygon(_ context.Context, name string, _ [][][]float64) (*agromonitoring.Polygon, error) {
	return &agromonitoring.Polygon{ID: "poly-1", Name: name, Area: 2.5, Center: []float64{77.15, 28.63}}, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// newTestApp wires the API with no live providers: weather falls back to
// regional normals and prices come from the static snapshot.
func newTestApp(t *testing.T, db Pinger) *fiber.App {
	t.Helper()
	return newFieldTestApp(t, db, nil)
}

func newFieldTestApp(t *testing.T, db Pinger, soilProvider services.SoilProvider) *fiber.App {
	t.Helper()

	cfg := &config.Config{
		FetchTimeout:         time.Second,
		CacheTTL:             time.Hour,
		DashboardTopN:        4,
		MaxConcurrentFetches: 4,
	}
	cat := catalog.Default()
	cache := services.NewCacheService(context.Background(), cfg, nil)
	t.Cleanup(func() { _ = cache.Close() })

	soil := services.NewSoilService(soilProvider, cache, cfg.FetchTimeout, nil)
	orch := services.NewRecommendationOrchestrator(
		cfg,
		cat,
		engine.NewRuleBasedProvider(engine.NewForecaster(nil, ""), engine.NewCurveGenerator(cat)),
		services.NewWeatherService(nil, cache, cfg.FetchTimeout, nil),
		soil,
		services.NewMarketDataService(cfg, nil, nil, cache, nil),
		cache,
		nil,
	)

	app := fiber.New(fiber.Config{ErrorHandler: CustomErrorHandler})
	SetupRoutes(app, NewRecommendationHandler(orch), NewMarketHandler(orch), NewFieldHandler(soil), NewHealthHandler(false, db))
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request, out interface{}) int {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}
	return resp.StatusCode
}

func TestGetRecommendations(t *testing.T) {
	app := newTestApp(t, nil)

	var res models.RecommendationResult
	code := do(t, app, httptest.NewRequest(http.MethodGet, "/v1/recommendations/Delhi?date=2025-07-20", nil), &res)
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, "Delhi", res.City)
	assert.Equal(t, "2025-07-20", res.Date)
	assert.True(t, res.WeatherDataStale)
	assert.Equal(t, []string{engine.AlertFavorable}, res.Alerts)
	assert.Len(t, res.Recommendations, len(catalog.Default().Crops()))
	assert.Equal(t, "Rice", res.Recommendations[0].CropName)
	assert.InDelta(t, 0.93, res.Recommendations[0].ConfidenceScore, 1e-9)
	assert.Equal(t, 93, res.Recommendations[0].ConfidencePercent)
}

func TestGetDashboard(t *testing.T) {
	app := newTestApp(t, nil)

	var res models.RecommendationResult
	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/Ludhiana?date=2025-11-10&lang=hi", nil)
	req.Header.Set(clientIDHeader, "farmer-1")
	code := do(t, app, req, &res)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, res.Recommendations, 4)
	assert.Len(t, res.AlertMessages, len(res.Alerts))
}

func TestRecommendationErrors(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown city", "/v1/recommendations/Atlantis", http.StatusNotFound},
		{"bad date", "/v1/recommendations/Delhi?date=20-07-2025", http.StatusBadRequest},
		{"negative top", "/v1/recommendations/Delhi?top=-1", http.StatusBadRequest},
		{"bad latitude", "/v1/recommendations/Delhi?lat=north", http.StatusBadRequest},
		{"unknown crop", "/v1/seasonal-trend/Dragonfruit", http.StatusNotFound},
		{"horizon too long", "/v1/seasonal-trend/Rice?months=24", http.StatusBadRequest},
		{"horizon not a number", "/v1/seasonal-trend/Rice?months=six", http.StatusBadRequest},
		{"unknown route", "/v2/nothing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res models.ErrorResponse
			code := do(t, app, httptest.NewRequest(http.MethodGet, tt.path, nil), &res)
			assert.Equal(t, tt.want, code)
			assert.Equal(t, tt.want, res.Code)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestGetWeather(t *testing.T) {
	app := newTestApp(t, nil)

	var report models.WeatherReport
	code := do(t, app, httptest.NewRequest(http.MethodGet, "/v1/weather/Chennai", nil), &report)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, report.Stale)
	assert.Equal(t, "Chennai", report.Observation.City)
	assert.Equal(t, []string{engine.AlertFavorable}, report.Alerts)
}

func TestPredictPrices(t *testing.T) {
	app := newTestApp(t, nil)

	body := `{"city":"Delhi","historicalPrices":{"Mustard":[50,52,60]}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/predictions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	var res struct {
		City        string                   `json:"city"`
		Predictions []models.PricePrediction `json:"predictions"`
	}
	code := do(t, app, req, &res)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, res.Predictions, 9)
	for _, p := range res.Predictions {
		assert.NotEmpty(t, p.ID)
		assert.Contains(t, []string{engine.TrendRising, engine.TrendFalling, engine.TrendStable}, p.Trend)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/predictions", strings.NewReader(`{"city":""}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, do(t, app, req, nil))

	req = httptest.NewRequest(http.MethodPost, "/v1/predictions", strings.NewReader(`{"city":`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, do(t, app, req, nil))
}

func TestGetSeasonalTrend(t *testing.T) {
	app := newTestApp(t, nil)

	var res struct {
		Months int                         `json:"months"`
		Trend  []models.SeasonalTrendPoint `json:"trend"`
	}
	code := do(t, app, httptest.NewRequest(http.MethodGet, "/v1/seasonal-trend/Onion?months=4", nil), &res)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 4, res.Months)
	require.Len(t, res.Trend, 4)
	assert.Equal(t, 90.0, res.Trend[0].Confidence)

	code = do(t, app, httptest.NewRequest(http.MethodGet, "/v1/seasonal-trend/Onion", nil), &res)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, res.Trend, defaultTrendMonths)
}

func TestMarketEndpoints(t *testing.T) {
	app := newTestApp(t, nil)

	var prices struct {
		Prices []models.MarketPricePoint `json:"prices"`
		Stale  bool                      `json:"market_data_stale"`
	}
	code := do(t, app, httptest.NewRequest(http.MethodGet, "/v1/market-prices", nil), &prices)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, prices.Prices, 8)
	assert.False(t, prices.Stale)

	var refreshed map[string]interface{}
	code = do(t, app, httptest.NewRequest(http.MethodPost, "/v1/admin/refresh", nil), &refreshed)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Cache refreshed successfully", refreshed["message"])

	var cities map[string][]string
	code = do(t, app, httptest.NewRequest(http.MethodGet, "/v1/cities", nil), &cities)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, cities["cities"], "Delhi")
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, nil)
	var health map[string]interface{}
	assert.Equal(t, http.StatusOK, do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, http.StatusOK, do(t, app, httptest.NewRequest(http.MethodGet, "/health/ready", nil), nil))

	down := newTestApp(t, pingFunc(func(context.Context) error { return errors.New("connection refused") }))
	var ready map[string]interface{}
	assert.Equal(t, http.StatusServiceUnavailable, do(t, down, httptest.NewRequest(http.MethodGet, "/health/ready", nil), &ready))
	assert.Equal(t, "degraded", ready["status"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusConflict, statusFor(models.ErrSuperseded))
	assert.Equal(t, fiber.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, fiber.StatusBadRequest, statusFor(models.NewValidationError("date", "x", "bad")))
	assert.Equal(t, fiber.StatusInternalServerError, statusFor(errors.New("boom")))
	assert.Equal(t, fiber.StatusBadGateway, statusFor(&models.UpstreamError{Source: "soil", Err: errors.New("404")}))
	assert.Equal(t, fiber.StatusServiceUnavailable, statusFor(&models.UpstreamError{Source: "soil", Err: models.ErrNotConfigured}))
}

func TestCreatePolygon(t *testing.T) {
	app := newFieldTestApp(t, nil, &fakeAgro{})

	body := `{"name": "North field", "farmer_id": "f-7", "coordinates": [[[77.1, 28.6], [77.2, 28.6], [77.2, 28.7], [77.1, 28.6]]]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/polygons", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	var polygon models.FieldPolygon
	require.Equal(t, http.StatusCreated, do(t, app, req, &polygon))
	assert.Equal(t, "poly-1", polygon.ID)
	assert.Equal(t, "North field", polygon.Name)
	assert.Equal(t, "f-7", polygon.FarmerID)
	assert.InDelta(t, 2.5, polygon.Area, 1e-9)

	unclosed := `{"name": "Open", "coordinates": [[[77.1, 28.6], [77.2, 28.6], [77.2, 28.7], [77.3, 28.8]]]}`
	req = httptest.NewRequest(http.MethodPost, "/v1/polygons", strings.NewReader(unclosed))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, do(t, app, req, nil))

	unconfigured := newTestApp(t, nil)
	req = httptest.NewRequest(http.MethodPost, "/v1/polygons", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusServiceUnavailable, do(t, unconfigured, req, nil))
}

func TestGetSoil(t *testing.T) {
	agro := &fakeAgro{}
	app := newFieldTestApp(t, nil, agro)

	var reading models.SoilReading
	require.Equal(t, http.StatusOK, do(t, app, httptest.NewRequest(http.MethodGet, "/v1/soil/poly-1", nil), &reading))
	assert.Equal(t, "poly-1", reading.PolygonID)
	assert.InDelta(t, 0.3, reading.Moisture, 1e-9)
	assert.InDelta(t, 27.5, reading.SurfaceTempC, 1e-9)

	// Served from the cache on the second call.
	require.Equal(t, http.StatusOK, do(t, app, httptest.NewRequest(http.MethodGet, "/v1/soil/poly-1", nil), nil))
	assert.Equal(t, 1, agro.soilCalls)

	assert.Equal(t, http.StatusBadGateway, do(t, app, httptest.NewRequest(http.MethodGet, "/v1/soil/missing", nil), nil))
}

func TestCoordinatesValidation(t *testing.T) {
	app := newTestApp(t, nil)

	tests := map[string]int{
		"/v1/recommendations/Delhi?lat=28.61&lon=77.21": http.StatusOK,
		"/v1/recommendations/Delhi?lat=28.61":           http.StatusBadRequest,
		"/v1/recommendations/Delhi?lat=95&lon=77.21":    http.StatusBadRequest,
		"/v1/recommendations/Delhi?lat=north&lon=77.21": http.StatusBadRequest,
		"/v1/weather/Delhi?lat=28.61&lon=77.21":         http.StatusOK,
		"/v1/weather/Delhi?lon=77.21":                   http.StatusBadRequest,
	}
	for target, want := range tests {
		t.Run(target, func(t *testing.T) {
			assert.Equal(t, want, do(t, app, httptest.NewRequest(http.MethodGet, target, nil), nil))
		})
	}
}
