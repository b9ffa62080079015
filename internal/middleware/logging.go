package middleware

import (
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/Landfall-Studios/Sentinel/pkg/hash"
)

// NewLogger builds the process-wide zerolog logger with structured JSON
// output. An unknown level string falls back to info.
func NewLogger(level, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	return zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// sanitizePath replaces dynamic path segments (member IDs) with placeholders
// so identifiers are never written to logs.
func sanitizePath(path string) string {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		switch parts[i-1] {
		case "reputation":
			parts[i] = ":targetId"
		case "voters":
			parts[i] = ":voterId"
		}
	}
	return strings.Join(parts, "/")
}

func levelFor(status int) zerolog.Level {
	switch {
	case status >= 500:
		return zerolog.ErrorLevel
	case status >= 400:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewRequestLogger returns a Fiber middleware logging one structured line per
// request. Client IPs are salted and hashed before they reach the log.
func NewRequestLogger(log zerolog.Logger, ipSalt string) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		log.WithLevel(levelFor(status)).
			Str("method", c.Method()).
			Str("path", sanitizePath(c.Path())).
			Int("status", status).
			Dur("duration_ms", time.Since(start)).
			Str("ip_hash", hash.IP(c.IP(), ipSalt)).
			Int("bytes_sent", len(c.Response().Body())).
			Msg("request")

		return err
	}
}
