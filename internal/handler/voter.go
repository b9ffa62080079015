package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Landfall-Studios/Sentinel/internal/middleware"
	"github.com/Landfall-Studios/Sentinel/internal/service"
)

type VoterHandler struct {
	svc *service.ReputationService
}

func NewVoterHandler(svc *service.ReputationService) *VoterHandler {
	return &VoterHandler{svc: svc}
}

// Get handles GET /api/voters/:voterId
func (h *VoterHandler) Get(c fiber.Ctx) error {
	voterID, errMsg := middleware.ValidateMemberID("voterId", c.Params("voterId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	profile, err := h.svc.VoterProfile(c.Context(), voterID)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to look up voter")
	}
	if profile == nil {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Voter not found")
	}

	return c.JSON(profile)
}
