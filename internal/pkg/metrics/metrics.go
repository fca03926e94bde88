package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hafasgo",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hafasgo",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hafasgo",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Upstream HAFAS metrics
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hafasgo",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Total requests sent to the HAFAS endpoint",
	}, []string{"profile", "method", "status"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hafasgo",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Latency of HAFAS requests in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"profile", "method"})

	UpstreamRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hafasgo",
		Subsystem: "upstream",
		Name:      "retries_total",
		Help:      "Total retried HAFAS requests",
	}, []string{"operation"})

	UnresolvedReferences = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hafasgo",
		Subsystem: "parse",
		Name:      "unresolved_references_total",
		Help:      "References into the common tables that pointed nowhere",
	}, []string{"pattern"})

	// Radar feed metrics
	MovementsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hafasgo",
		Subsystem: "radar",
		Name:      "movements_published_total",
		Help:      "Total vehicle movements published to NATS",
	})

	RadarPollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hafasgo",
		Subsystem: "radar",
		Name:      "poll_duration_seconds",
		Help:      "Duration of radar polls",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	RadarPollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hafasgo",
		Subsystem: "radar",
		Name:      "poll_errors_total",
		Help:      "Total failed radar polls",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hafasgo",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hafasgo",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hafasgo",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
