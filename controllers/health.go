package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// Health handles GET /healthz.
func Health(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := db(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
