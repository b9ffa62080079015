package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// HTTP-level collectors. Engine collectors live in the service package.
var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sentinel_api_request_duration_seconds",
		Help:    "HTTP request duration in seconds, by endpoint, method and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status"})

	requestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_requests_in_flight",
		Help: "Number of HTTP requests currently being served.",
	})
)

// InitMetrics registers the database pool gauges. Call once at startup.
func InitMetrics(pool *pgxpool.Pool) {
	if pool == nil {
		return
	}
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "sentinel_db_connection_pool_active",
		Help: "Number of active database connections.",
	}, func() float64 { return float64(pool.Stat().AcquiredConns()) })

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "sentinel_db_connection_pool_idle",
		Help: "Number of idle database connections.",
	}, func() float64 { return float64(pool.Stat().IdleConns()) })
}

// MetricsMiddleware records request duration and in-flight count. The
// endpoint label uses the matched route pattern, never the raw path, so
// member IDs stay out of label values and cardinality stays bounded.
func MetricsMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Fiber's method string aliases the fasthttp buffer; clone it
		// before handlers run and the buffer gets reused.
		method := strings.Clone(c.Method())

		requestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		requestsInFlight.Dec()

		endpoint := c.Route().Path
		status := strconv.Itoa(c.Response().StatusCode())
		requestDuration.WithLabelValues(endpoint, method, status).
			Observe(time.Since(start).Seconds())

		return err
	}
}

// MetricsHandler serves the Prometheus /metrics endpoint through Fiber.
func MetricsHandler() fiber.Handler {
	serve := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		serve(c.RequestCtx())
		return nil
	}
}
