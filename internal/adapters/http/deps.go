package http

import (
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/hafasgo/internal/core/ports"
	"github.com/samirrijal/hafasgo/internal/core/usecases"
)

// Dependencies holds everything the HTTP handlers need.
type Dependencies struct {
	Client *usecases.Client
	// NATS feeds the /ws relay; nil disables it.
	NATS          *nats.Conn
	SubjectPrefix string
	// Cache stores successful GET responses for CacheTTL seconds; nil or a
	// zero TTL disables response caching.
	Cache    ports.CacheService
	CacheTTL int
	// Movements, when set, lets /v1/health report when the radar feed last
	// published a movement.
	Movements ports.EventSubscriber
}
