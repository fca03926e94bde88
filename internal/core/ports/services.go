package ports

import (
	"context"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/hafas"
	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

// Transport sends one service request to the upstream endpoint and returns
// the decoded result of that request. Upstream failures come back as *hafas.Error.
type Transport interface {
	Request(ctx context.Context, req hafas.Request) (*raw.Object, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishMovement(ctx context.Context, m *domain.Movement) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeMovements(ctx context.Context, handler func(ctx context.Context, data []byte) error) error
}

// CacheService stores opaque values by key. Get reports a missing key as an error.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
