package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samirrijal/hafasgo/internal/adapters/hafashttp"
	"github.com/samirrijal/hafasgo/internal/adapters/http"
	natsadapter "github.com/samirrijal/hafasgo/internal/adapters/nats"
	"github.com/samirrijal/hafasgo/internal/adapters/valkey"
	"github.com/samirrijal/hafasgo/internal/core/usecases"
	"github.com/samirrijal/hafasgo/internal/pkg/config"
	"github.com/samirrijal/hafasgo/internal/pkg/logging"
	"github.com/samirrijal/hafasgo/internal/pkg/telemetry"
	"github.com/samirrijal/hafasgo/internal/profiles"
)

func main() {
	cfg, err := config.Load("hafasgo-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup("hafasgo-api", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// HAFAS
	profile, err := profiles.Get(cfg.HAFAS.Profile)
	if err != nil {
		log.Fatalf("profile: %v", err)
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

	deps := &http.Dependencies{
		Client:        client,
		SubjectPrefix: cfg.NATS.SubjectPrefix,
		CacheTTL:      cfg.Valkey.TTL,
	}

	// Cache
	if cfg.Valkey.Addr != "" {
		cache, err := valkey.New(cfg.Valkey.Addr, "api")
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer cache.Close()
			deps.Cache = cache
		}
	}

	// NATS: raw connection for the WebSocket relay, subscriber for radar freshness
	if cfg.NATS.URL != "" {
		natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			defer natsConn.Drain()
			deps.NATS = natsConn
		}

		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			deps.Movements = sub
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "hafasgo API",
		ErrorHandler: http.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		ExposeHeaders:    "ETag, Link, X-Cache, Deprecation, Sunset",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "profile", profile.Name)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
