package http

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	var lastMovement atomic.Int64 // unix millis, 0 = none yet
	if deps.Movements != nil {
		err := deps.Movements.SubscribeMovements(context.Background(), func(context.Context, []byte) error {
			lastMovement.Store(time.Now().UnixMilli())
			return nil
		})
		if err != nil {
			slog.Warn("movement subscription failed", "error", err)
		}
	}

	return func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":  "healthy",
			"profile": deps.Client.Profile().Name,
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		}
		if deps.Movements != nil {
			body["last_movement"] = nil
			if ms := lastMovement.Load(); ms > 0 {
				body["last_movement"] = time.UnixMilli(ms).UTC().Format(time.RFC3339)
			}
		}
		return c.JSON(body)
	}
}

// ReadyHandler checks NATS and cache connectivity. Both are optional; a
// configured but unreachable one makes the service not ready.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		// NATS
		if deps.NATS != nil {
			if deps.NATS.IsConnected() {
				checks["nats"] = "ok"
			} else {
				checks["nats"] = "disconnected"
				allOK = false
			}
		} else {
			checks["nats"] = "not configured"
		}

		// Valkey cache
		if deps.Cache != nil {
			if err := deps.Cache.Ping(ctx); err != nil {
				checks["cache"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["cache"] = "ok"
			}
		} else {
			checks["cache"] = "not configured"
		}

		status := "ready"
		code := fiber.StatusOK
		if !allOK {
			status = "not ready"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
