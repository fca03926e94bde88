package natsadapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Subscriber implements ports.EventSubscriber on a plain NATS connection.
// Every subscriber sees every movement; there is no shared durable consumer.
type Subscriber struct {
	conn   *nats.Conn
	prefix string
	subs   []*nats.Subscription
}

// NewSubscriber connects to NATS.
func NewSubscriber(url, prefix string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Subscriber{conn: conn, prefix: prefix}, nil
}

// SubscribeMovements calls handler with the JSON of every published movement.
func (s *Subscriber) SubscribeMovements(ctx context.Context, handler func(ctx context.Context, data []byte) error) error {
	sub, err := s.conn.Subscribe(s.prefix+".>", func(msg *nats.Msg) {
		if !IsMovementSubject(s.prefix, msg.Subject) {
			return
		}
		if err := handler(ctx, msg.Data); err != nil {
			slog.Warn("movement handler failed", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
