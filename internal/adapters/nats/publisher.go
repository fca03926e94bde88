package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/hafasgo/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	prefix string
}

// NewPublisher connects to NATS and ensures the movements stream exists.
// Movements go to <prefix>.<tripId>.
func NewPublisher(url, prefix string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Vehicle positions are stale after a few minutes; keep only the latest per trip.
	cfg := nats.StreamConfig{
		Name:              "HAFAS_MOVEMENTS",
		Subjects:          []string{prefix + ".>"},
		Retention:         nats.LimitsPolicy,
		MaxAge:            10 * time.Minute,
		MaxMsgsPerSubject: 1,
		Storage:           nats.MemoryStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js, prefix: prefix}, nil
}

func (p *Publisher) PublishMovement(ctx context.Context, m *domain.Movement) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(MovementSubject(p.prefix, m.TripID), data, nats.Context(ctx))
	return err
}

func (p *Publisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return p.conn.Publish(BroadcastSubject(p.prefix), data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

var subjectToken = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")

// MovementSubject returns the subject a trip's movements are published on.
// Trip IDs may contain characters NATS reserves, those become underscores.
func MovementSubject(prefix, tripID string) string {
	if tripID == "" {
		tripID = "unknown"
	}
	return prefix + "." + subjectToken.Replace(tripID)
}

// BroadcastSubject returns the subject the per-poll summaries go to. It sits
// under the same prefix as the movements.
func BroadcastSubject(prefix string) string {
	return prefix + ".broadcast"
}

// IsMovementSubject reports whether subject carries a single movement, as
// opposed to a broadcast summary.
func IsMovementSubject(prefix, subject string) bool {
	return strings.HasPrefix(subject, prefix+".") && subject != BroadcastSubject(prefix)
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
