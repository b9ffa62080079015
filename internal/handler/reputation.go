package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Landfall-Studios/Sentinel/internal/middleware"
	"github.com/Landfall-Studios/Sentinel/internal/service"
)

type ReputationHandler struct {
	svc *service.ReputationService
}

func NewReputationHandler(svc *service.ReputationService) *ReputationHandler {
	return &ReputationHandler{svc: svc}
}

// Get handles GET /api/reputation/:targetId
func (h *ReputationHandler) Get(c fiber.Ctx) error {
	targetID, errMsg := middleware.ValidateMemberID("targetId", c.Params("targetId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	// Reads never fail: stale or missing data degrades to a neutral score.
	return c.JSON(h.svc.GetReputation(c.Context(), targetID))
}

// RefreshPercentiles handles POST /api/percentiles/refresh
func (h *ReputationHandler) RefreshPercentiles(c fiber.Ctx) error {
	updated, err := h.svc.UpdatePercentileRanks(c.Context())
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to refresh percentile ranks")
	}
	return c.JSON(fiber.Map{"updated": updated})
}
