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
		Namespace: "patitas",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "patitas",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "patitas",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Sighting metrics
	SightingsReported = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patitas",
		Subsystem: "sightings",
		Name:      "reported_total",
		Help:      "Total animal sightings reported",
	}, []string{"type"})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patitas",
		Subsystem: "sightings",
		Name:      "status_transitions_total",
		Help:      "Total sighting status transitions",
	}, []string{"status"})

	GuardianAssignments = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "patitas",
		Subsystem: "sightings",
		Name:      "guardian_assignments_total",
		Help:      "Total guardian assignments",
	})

	AreasLabeled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "patitas",
		Subsystem: "areas",
		Name:      "labeled_total",
		Help:      "Total labeled areas created",
	})

	// Map session metrics
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "patitas",
		Subsystem: "ws",
		Name:      "active_sessions",
		Help:      "Current number of active map sessions",
	})

	SessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patitas",
		Subsystem: "ws",
		Name:      "session_events_total",
		Help:      "Total browser events dispatched to map sessions",
	}, []string{"event"})

	ClusterZoomTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "patitas",
		Subsystem: "ws",
		Name:      "cluster_zoom_timeouts_total",
		Help:      "Total cluster expansion queries that timed out",
	})
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
