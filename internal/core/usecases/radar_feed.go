package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/core/ports"
	"github.com/samirrijal/hafasgo/internal/pkg/metrics"
)

// RadarSource is what the feed polls; *Client satisfies it.
type RadarSource interface {
	Radar(ctx context.Context, bbox domain.BoundingBox, opt RadarOptions) ([]*domain.Movement, error)
}

// RadarFeed polls the vehicles inside one area and publishes every movement.
type RadarFeed struct {
	source    RadarSource
	publisher ports.EventPublisher
	bbox      domain.BoundingBox
	opt       RadarOptions
	logger    *slog.Logger
}

// NewRadarFeed creates a feed for bbox.
func NewRadarFeed(source RadarSource, publisher ports.EventPublisher, bbox domain.BoundingBox, opt RadarOptions) *RadarFeed {
	return &RadarFeed{
		source:    source,
		publisher: publisher,
		bbox:      bbox,
		opt:       opt,
		logger:    slog.Default().With("component", "radar"),
	}
}

// Poll runs one radar query and publishes the result. It returns the number of
// movements published; a failed publish is logged and does not stop the rest.
func (f *RadarFeed) Poll(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { metrics.RadarPollDuration.Observe(time.Since(start).Seconds()) }()

	movements, err := f.source.Radar(ctx, f.bbox, f.opt)
	if err != nil {
		metrics.RadarPollErrors.Inc()
		return 0, fmt.Errorf("radar poll: %w", err)
	}

	published := 0
	for _, m := range movements {
		if err := f.publisher.PublishMovement(ctx, m); err != nil {
			f.logger.Warn("publish movement failed", "trip_id", m.TripID, "error", err)
			continue
		}
		published++
	}
	metrics.MovementsPublished.Add(float64(published))

	summary, err := json.Marshal(map[string]any{
		"time":      start.UTC().Format(time.RFC3339),
		"movements": published,
	})
	if err == nil {
		if err := f.publisher.PublishBroadcast(ctx, summary); err != nil {
			f.logger.Warn("publish broadcast failed", "error", err)
		}
	}
	return published, nil
}

// Run polls once immediately and then every interval until ctx is done.
func (f *RadarFeed) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	f.logger.Info("radar feed started", "interval", interval.String())
	for {
		if n, err := f.Poll(ctx); err != nil {
			f.logger.Error("radar poll failed", "error", err)
		} else {
			f.logger.Debug("radar poll", "movements", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
