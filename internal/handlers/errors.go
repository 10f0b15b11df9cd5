package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"krishi-advisor/internal/models"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	var ve *models.ValidationError
	var ue *models.UpstreamError
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &ve):
		if ve.Field == "city" || ve.Field == "crop" {
			return fiber.StatusNotFound
		}
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrSuperseded):
		return fiber.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, models.ErrNotConfigured):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &ue):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func errorTitle(code int) string {
	switch code {
	case fiber.StatusNotFound:
		return "Not found"
	case fiber.StatusBadRequest:
		return "Invalid request"
	case fiber.StatusConflict:
		return "Request superseded"
	case fiber.StatusGatewayTimeout:
		return "Request timed out"
	case fiber.StatusServiceUnavailable:
		return "Provider not configured"
	case fiber.StatusBadGateway:
		return "Upstream provider failed"
	default:
		return "Request failed"
	}
}

func writeError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	return c.Status(code).JSON(models.ErrorResponse{
		Error:   errorTitle(code),
		Message: err.Error(),
		Code:    code,
	})
}

// CustomErrorHandler handles Fiber errors
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	return writeError(c, err)
}
