package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"krishi-advisor/internal/models"
	"krishi-advisor/internal/services"
)

type FieldHandler struct {
	soil *services.SoilService
}

func NewFieldHandler(soil *services.SoilService) *FieldHandler {
	return &FieldHandler{soil: soil}
}

// CreatePolygon handles POST /v1/polygons
func (h *FieldHandler) CreatePolygon(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), lightRequestTimeout)
	defer cancel()

	var req models.PolygonCreate
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.NewError(fiber.StatusBadRequest, err.Error()))
	}

	polygon, err := h.soil.RegisterField(ctx, req)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(polygon)
}

// GetSoil handles GET /v1/soil/:polygon_id
func (h *FieldHandler) GetSoil(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), lightRequestTimeout)
	defer cancel()

	reading, err := h.soil.Reading(ctx, c.Params("polygon_id"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(reading)
}
