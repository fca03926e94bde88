package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/hafasgo/internal/adapters/valkey"
	"github.com/samirrijal/hafasgo/internal/pkg/metrics"
)

// cached serves a GET from the response cache when possible and stores
// successful responses of h. op labels the cache metrics.
func cached(deps *Dependencies, op string, h fiber.Handler) fiber.Handler {
	if deps.Cache == nil || deps.CacheTTL <= 0 {
		return h
	}
	return func(c *fiber.Ctx) error {
		key := valkey.Key("http", op, c.OriginalURL())
		ctx := c.UserContext()

		if body, err := deps.Cache.Get(ctx, key); err == nil {
			metrics.CacheHits.WithLabelValues(op).Inc()
			c.Set("X-Cache", "HIT")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
			return c.Send(body)
		}
		metrics.CacheMisses.WithLabelValues(op).Inc()

		if err := h(c); err != nil {
			return err
		}
		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		c.Set("X-Cache", "MISS")
		body := append([]byte(nil), c.Response().Body()...)
		if err := deps.Cache.Set(ctx, key, body, deps.CacheTTL); err != nil {
			LoggerFromCtx(ctx).Warn("response cache write failed", "key", key, "error", err)
		}
		return nil
	}
}
