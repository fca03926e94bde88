package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"
	natsadapter "github.com/samirrijal/hafasgo/internal/adapters/nats"
	"github.com/samirrijal/hafasgo/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action string `json:"action"`  // "subscribe" | "unsubscribe"
	TripID string `json:"trip_id"` // one vehicle; "" = every movement
	// Channel is "movements" (default) or "broadcast" for the per-poll summaries.
	Channel string `json:"channel"`
}

// WebSocketHandler returns a handler that relays radar movements published
// on NATS to connected clients. Every client starts subscribed to all
// movements and can narrow down with
// {"action":"subscribe","trip_id":"1|31041|0|86|15012024"}.
func WebSocketHandler(nc *nats.Conn, prefix string) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		logger := slog.Default().With("remote_addr", c.RemoteAddr().String())
		logger.Debug("ws client connected")

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}
		// The wildcard also matches the broadcast subject.
		relayMovements := func(msg *nats.Msg) {
			if natsadapter.IsMovementSubject(prefix, msg.Subject) {
				relay(msg)
			}
		}

		allMovements := prefix + ".>"
		sub, err := nc.Subscribe(allMovements, relayMovements)
		if err != nil {
			logger.Error("ws default subscribe failed", "error", err)
			return
		}
		subs[allMovements] = sub

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			var subject string
			switch m.Channel {
			case "", "movements":
				if m.TripID != "" {
					subject = natsadapter.MovementSubject(prefix, m.TripID)
				} else {
					subject = allMovements
				}
			case "broadcast":
				subject = natsadapter.BroadcastSubject(prefix)
			default:
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				// A single trip replaces the catch-all subscription.
				if subject != allMovements && m.Channel != "broadcast" {
					if all, ok := subs[allMovements]; ok {
						_ = all.Unsubscribe()
						delete(subs, allMovements)
					}
				}
				handler := relay
				if subject == allMovements {
					handler = relayMovements
				}
				s, err := nc.Subscribe(subject, handler)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		logger.Debug("ws client disconnected")
	}
}
