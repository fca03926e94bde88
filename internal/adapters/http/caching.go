package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win. Realtime data gets short lifetimes.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != fiber.StatusOK {
			return err
		}
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case path == "/v1/radar":
			ttl = "public, max-age=5"

		case strings.HasSuffix(path, "/departures") || strings.HasSuffix(path, "/arrivals"):
			ttl = "public, max-age=30"

		case strings.HasPrefix(path, "/v1/journeys") || strings.HasPrefix(path, "/v1/trips"):
			ttl = "public, max-age=30"

		case strings.HasPrefix(path, "/v1/remarks") || path == "/v1/reachable-from":
			ttl = "public, max-age=60"

		case strings.HasPrefix(path, "/v1/locations") || strings.HasPrefix(path, "/v1/stops/") ||
			path == "/v1/lines":
			ttl = "public, max-age=300"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=30"
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
