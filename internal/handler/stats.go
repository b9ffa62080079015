package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Landfall-Studios/Sentinel/internal/middleware"
	"github.com/Landfall-Studios/Sentinel/internal/repository"
)

// topScoresCount bounds the leaderboard slice in the stats response.
const topScoresCount = 10

type StatsHandler struct {
	store *repository.Store
}

func NewStatsHandler(store *repository.Store) *StatsHandler {
	return &StatsHandler{store: store}
}

// Get handles GET /api/stats
func (h *StatsHandler) Get(c fiber.Ctx) error {
	stats, err := h.store.CommunityStats(c.Context(), topScoresCount)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to load community stats")
	}
	return c.JSON(stats)
}
