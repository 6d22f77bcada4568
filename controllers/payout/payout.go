package payout

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/javascriptando/vips.lat-sub001/helpers"
	"github.com/javascriptando/vips.lat-sub001/services"
)

type Controller struct {
	payouts *services.PayoutService
	logger  *zap.SugaredLogger
}

func NewController(payouts *services.PayoutService, logger *zap.SugaredLogger) *Controller {
	return &Controller{payouts: payouts, logger: logger}
}

type RequestPayoutRequest struct {
	CreatorID uint  `json:"creator_id"`
	Amount    int64 `json:"amount"`
}

// RequestPayout runs the settlement flow for a creator. Amount zero or
// absent withdraws the full available balance.
func (ct *Controller) RequestPayout(c *fiber.Ctx) error {
	var req RequestPayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid json body")
	}
	if req.CreatorID == 0 {
		return helpers.JSONError(c, fiber.StatusBadRequest, "creator_id is required")
	}

	payout, err := ct.payouts.RequestPayout(c.UserContext(), req.CreatorID, req.Amount)
	if err != nil {
		if services.KindOf(err) == "" || services.IsKind(err, services.KindReconciliationRequired) {
			ct.logger.Errorw("payout request failed", "creator_id", req.CreatorID, "error", err)
		}
		return helpers.JSONServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Payout submitted successfully", payout)
}

// ListPayouts returns the creator's payout history, newest first.
func (ct *Controller) ListPayouts(c *fiber.Ctx) error {
	creatorID, err := c.ParamsInt("creatorId")
	if err != nil || creatorID <= 0 {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid creator id")
	}

	payouts, err := ct.payouts.ListPayouts(c.UserContext(), uint(creatorID), c.QueryInt("limit"))
	if err != nil {
		return helpers.JSONServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Payouts retrieved successfully", payouts)
}

// GetBalance returns the creator's available and pending balance.
func (ct *Controller) GetBalance(c *fiber.Ctx) error {
	creatorID, err := c.ParamsInt("creatorId")
	if err != nil || creatorID <= 0 {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid creator id")
	}

	balance, err := ct.payouts.CreatorBalance(c.UserContext(), uint(creatorID))
	if err != nil {
		return helpers.JSONServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Balance retrieved successfully", fiber.Map{
		"creator_id": balance.CreatorID,
		"available":  balance.Available,
		"pending":    balance.Pending,
	})
}
