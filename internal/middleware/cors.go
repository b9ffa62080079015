package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

// NewCORS builds the CORS middleware for the reputation API. origins is a
// comma-separated allowlist; "*" (the development default) allows everything.
func NewCORS(origins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:  splitOrigins(origins),
		AllowMethods:  []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Voter-ID"},
		ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:        86400,
	})
}

func splitOrigins(s string) []string {
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
