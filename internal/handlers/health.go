// Package handlers contains the HTTP route handler functions for the Golf Scorekeeper API.
// Each handler corresponds to one API endpoint and is responsible for reading the
// request, performing any business logic, and writing a response.
//
// Every exported function follows the "handler factory" pattern: it takes its
// dependencies (the *gorm.DB, the auth service, a clock) and returns a fiber.Handler.
// This lets us inject them without global variables.
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HealthCheck handles GET /health.
// It returns {"status":"ok"} when the server is up and the database answers a ping.
// Load balancers and container probes use it to decide whether to send traffic here.
func HealthCheck(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
				"error":  "database unreachable",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// NotFound handles any /api request that no route matched.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "Not found",
	})
}
