package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Landfall-Studios/Sentinel/internal/middleware"
	"github.com/Landfall-Studios/Sentinel/internal/model"
	"github.com/Landfall-Studios/Sentinel/internal/service"
)

type VoteHandler struct {
	svc *service.ReputationService
}

func NewVoteHandler(svc *service.ReputationService) *VoteHandler {
	return &VoteHandler{svc: svc}
}

// Submit handles POST /api/votes
//
// Rejections (self-vote, cooldown, bad value) are part of the result body
// with success=false, not HTTP errors: the front-end renders the message
// either way.
func (h *VoteHandler) Submit(c fiber.Ctx) error {
	var req model.VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	voterID, errMsg := middleware.ValidateMemberID("voterId", req.VoterID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	targetID, errMsg := middleware.ValidateMemberID("targetId", req.TargetID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	comment := middleware.CleanComment(req.Comment)

	result := h.svc.SubmitVote(c.Context(), voterID, targetID, req.Value, comment)
	return c.JSON(result)
}
