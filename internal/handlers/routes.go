package handlers

import "github.com/gofiber/fiber/v2"

// SetupRoutes mounts the API on app.
func SetupRoutes(app *fiber.App, rec *RecommendationHandler, market *MarketHandler, field *FieldHandler, health *HealthHandler) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Krishi Advisor API",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	app.Get("/health", health.Health)
	app.Get("/health/ready", health.Ready)

	// API v1 routes
	v1 := app.Group("/v1")
	v1.Get("/cities", rec.GetCities)
	v1.Get("/recommendations/:city", rec.GetRecommendations)
	v1.Get("/dashboard/:city", rec.GetDashboard)
	v1.Get("/weather/:city", rec.GetWeather)
	v1.Post("/predictions", rec.PredictPrices)
	v1.Get("/seasonal-trend/:crop", rec.GetSeasonalTrend)
	v1.Get("/market-prices", market.GetMarketPrices)
	v1.Post("/polygons", field.CreatePolygon)
	v1.Get("/soil/:polygon_id", field.GetSoil)
	v1.Post("/admin/refresh", market.RefreshCache)
}
