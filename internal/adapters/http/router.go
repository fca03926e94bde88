package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/hafasgo/internal/pkg/metrics"
)

// upstreamTimeout bounds a request including retried upstream calls.
const upstreamTimeout = 30 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Every request may cost an upstream call: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware(deprecatedRoutes))

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	route := func(op string, h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(cached(deps, op, h), upstreamTimeout)
	}

	v1 := app.Group("/v1")
	v1.Get("/stops/:id", route("stop", GetStopHandler(deps)))
	v1.Get("/stops/:id/departures", route("departures", DeparturesHandler(deps)))
	v1.Get("/stops/:id/arrivals", route("arrivals", ArrivalsHandler(deps)))
	v1.Get("/locations", route("locations", LocationsHandler(deps)))
	v1.Get("/locations/nearby", route("nearby", NearbyHandler(deps)))
	v1.Get("/journeys", route("journeys", JourneysHandler(deps)))
	v1.Get("/journeys/:ref", route("refresh_journey", RefreshJourneyHandler(deps)))
	v1.Get("/trips", route("trips_by_name", SearchTripsHandler(deps)))
	v1.Get("/trips/:id", route("trip", GetTripHandler(deps)))
	v1.Get("/radar", route("radar", RadarHandler(deps)))
	v1.Get("/remarks", route("remarks", RemarksHandler(deps)))
	v1.Get("/lines", route("lines", LinesHandler(deps)))
	v1.Get("/reachable-from", route("reachable_from", ReachableFromHandler(deps)))
	v1.Get("/server-info", route("server_info", ServerInfoHandler(deps)))

	// Deprecated aliases, see deprecatedRoutes.
	v1.Get("/stations/:id", route("stop", GetStopHandler(deps)))
	v1.Get("/stations/:id/departures", route("departures", DeparturesHandler(deps)))
	v1.Get("/stations/:id/arrivals", route("arrivals", ArrivalsHandler(deps)))

	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), upstreamTimeout))

	SetupDocs(app)

	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS, deps.SubjectPrefix)))
	}
}
