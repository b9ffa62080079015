package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const probeTimeout = 3 * time.Second

type HealthHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startedAt time.Time
}

func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{pool: pool, rdb: rdb, startedAt: time.Now()}
}

type dependencyCheck struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

type healthResponse struct {
	Status        string                     `json:"status"`
	UptimeSeconds int                        `json:"uptime_seconds"`
	Checks        map[string]dependencyCheck `json:"checks"`
}

// Live handles GET /health/live, process liveness only.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health. The database is required; Redis is optional and
// never degrades readiness.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), probeTimeout)
	defer cancel()

	resp := healthResponse{
		Status:        "healthy",
		UptimeSeconds: int(time.Since(h.startedAt).Seconds()),
		Checks: map[string]dependencyCheck{
			"database": probe(func() error { return h.pool.Ping(ctx) }),
		},
	}

	if h.rdb != nil {
		resp.Checks["redis"] = probe(func() error { return h.rdb.Ping(ctx).Err() })
	} else {
		resp.Checks["redis"] = dependencyCheck{Status: "disabled"}
	}

	status := fiber.StatusOK
	if resp.Checks["database"].Status != "up" {
		resp.Status = "degraded"
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(resp)
}

func probe(ping func() error) dependencyCheck {
	start := time.Now()
	err := ping()
	check := dependencyCheck{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "down"
		check.Error = "connection failed"
	}
	return check
}
