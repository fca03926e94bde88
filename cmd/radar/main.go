package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os/signal"
	"syscall"

	"github.com/samirrijal/hafasgo/internal/adapters/hafashttp"
	natsadapter "github.com/samirrijal/hafasgo/internal/adapters/nats"
	"github.com/samirrijal/hafasgo/internal/core/domain"
	"github.com/samirrijal/hafasgo/internal/core/usecases"
	"github.com/samirrijal/hafasgo/internal/pkg/config"
	"github.com/samirrijal/hafasgo/internal/pkg/logging"
	"github.com/samirrijal/hafasgo/internal/pkg/telemetry"
	"github.com/samirrijal/hafasgo/internal/profiles"
)

// radar polls the vehicle positions in the configured area and publishes
// them on NATS for the API's WebSocket relay.
func main() {
	cfg, err := config.Load("hafasgo-radar")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.Setup("hafasgo-radar", cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	profile, err := profiles.Get(cfg.HAFAS.Profile)
	if err != nil {
		log.Fatalf("profile: %v", err)
	}
	if !profile.Features.Radar {
		log.Fatalf("profile %s has no radar", profile.Name)
	}

	opts := []hafashttp.Option{
		hafashttp.WithHTTPClient(&nethttp.Client{Timeout: cfg.HAFAS.RequestTimeout()}),
		hafashttp.WithLogger(logger),
	}
	if cfg.HAFAS.Endpoint != "" {
		opts = append(opts, hafashttp.WithEndpoint(cfg.HAFAS.Endpoint))
	}
	transport, err := hafashttp.New(profile, cfg.HAFAS.UserAgent, opts...)
	if err != nil {
		log.Fatalf("transport: %v", err)
	}
	client := usecases.NewClient(profile, transport, usecases.WithLogger(logger))

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer publisher.Close()

	bbox := domain.BoundingBox{
		North: cfg.Radar.North,
		West:  cfg.Radar.West,
		South: cfg.Radar.South,
		East:  cfg.Radar.East,
	}
	opt := usecases.DefaultRadarOptions()
	if cfg.Radar.Results > 0 {
		opt.Results = cfg.Radar.Results
	}
	// Subscribers only need the current position.
	opt.Polylines = false

	interval := cfg.Radar.PollInterval()
	slog.Info("radar configured",
		"profile", profile.Name,
		"interval", interval.String(),
		"subject_prefix", cfg.NATS.SubjectPrefix,
	)

	usecases.NewRadarFeed(client, publisher, bbox, opt).Run(ctx, interval)

	slog.Info("radar feed stopped")
}
