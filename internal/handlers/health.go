package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is a dependency that can report its connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	startTime time.Time
	firestore bool
	database  Pinger
}

// NewHealthHandler reports on the optional dependencies; database may be nil.
func NewHealthHandler(firestoreEnabled bool, database Pinger) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		firestore: firestoreEnabled,
		database:  database,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "krishi-advisor",
		"version": "1.0.0",
		"uptime":  time.Since(h.startTime).String(),
		"time":    time.Now(),
	})
}

// Ready handles GET /health/ready
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	status := "ready"
	code := fiber.StatusOK

	firestore := "disabled"
	if h.firestore {
		firestore = "ok"
	}

	database := "disabled"
	if h.database != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.database.Ping(ctx); err != nil {
			database = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		} else {
			database = "ok"
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"api":       "ok",
			"firestore": firestore,
			"database":  database,
		},
	})
}
