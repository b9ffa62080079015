package middleware

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// Field limits matching database schema constraints.
const (
	MaxMemberIDLen = 32 // reputation_votes.voter_id / target_id VARCHAR(32)
)

// memberIDRe matches snowflake-style member identifiers: decimal digits only.
var memberIDRe = regexp.MustCompile(`^[0-9]+$`)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateMemberID checks that a member ID is well-formed and within DB
// limits. Returns the cleaned ID and an empty string, or an error message.
func ValidateMemberID(field, id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", field + " is required"
	}
	if len(id) > MaxMemberIDLen {
		return "", field + " must be at most 32 characters"
	}
	if !memberIDRe.MatchString(id) {
		return "", field + " must be a numeric member ID"
	}
	return id, ""
}

// CleanComment trims surrounding whitespace from an optional vote comment.
// Length limits are enforced by the engine, which owns the tunable.
func CleanComment(comment string) string {
	return strings.TrimSpace(comment)
}
