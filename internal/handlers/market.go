package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"krishi-advisor/internal/models"
	"krishi-advisor/internal/services"
)

type MarketHandler struct {
	orchestrator *services.RecommendationOrchestrator
}

func NewMarketHandler(orchestrator *services.RecommendationOrchestrator) *MarketHandler {
	return &MarketHandler{
		orchestrator: orchestrator,
	}
}

// GetMarketPrices handles GET /v1/market-prices
func (h *MarketHandler) GetMarketPrices(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), lightRequestTimeout)
	defer cancel()

	prices, stale := h.orchestrator.MarketPrices(ctx)
	return c.JSON(fiber.Map{
		"prices":            prices,
		"market_data_stale": stale,
	})
}

// RefreshCache handles POST /v1/admin/refresh
func (h *MarketHandler) RefreshCache(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 60*time.Second)
	defer cancel()

	n, err := h.orchestrator.RefreshCache(ctx)
	if err != nil {
		return c.Status(500).JSON(models.ErrorResponse{
			Error:   "Failed to refresh cache",
			Message: err.Error(),
			Code:    500,
		})
	}

	return c.JSON(fiber.Map{
		"message":   "Cache refreshed successfully",
		"refreshed": n,
		"time":      time.Now(),
	})
}
