package admin

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/javascriptando/vips.lat-sub001/helpers"
	"github.com/javascriptando/vips.lat-sub001/models"
	"github.com/javascriptando/vips.lat-sub001/services"
)

type RecordChargebackRequest struct {
	PaymentID            uint   `json:"payment_id"`
	PaymentReference     string `json:"payment_reference"`
	CreatorID            uint   `json:"creator_id"`
	Amount               int64  `json:"amount"`
	ExternalChargebackID string `json:"external_chargeback_id"`
}

// RecordChargeback opens a dispute by hand, for cases the gateway never
// reports, like bank-initiated reversals arriving by email.
func (ct *Controller) RecordChargeback(c *fiber.Ctx) error {
	var req RecordChargebackRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid json body")
	}

	in := services.RecordChargebackInput{
		PaymentID:        req.PaymentID,
		PaymentReference: req.PaymentReference,
		CreatorID:        req.CreatorID,
		Amount:           req.Amount,
	}
	if req.ExternalChargebackID != "" {
		in.ExternalChargebackID = &req.ExternalChargebackID
	}

	cb, err := ct.chargebacks.Record(c.UserContext(), in)
	if err != nil {
		return helpers.JSONServiceError(c, err)
	}
	ct.logger.Infow("chargeback recorded by admin", "chargeback", cb.Reference, "admin", adminID(c))
	return helpers.JSONSuccess(c, "Chargeback recorded", cb)
}

// ListChargebacks filters disputes by creator_id, status and limit.
func (ct *Controller) ListChargebacks(c *fiber.Ctx) error {
	filter := services.ChargebackFilter{Limit: c.QueryInt("limit")}
	if v := c.QueryInt("creator_id"); v > 0 {
		id := uint(v)
		filter.CreatorID = &id
	}
	if raw := c.Query("status"); raw != "" {
		status := models.ChargebackStatus(strings.ToLower(raw))
		filter.Status = &status
	}

	rows, err := ct.chargebacks.List(c.UserContext(), filter)
	if err != nil {
		return helpers.JSONServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Chargebacks retrieved successfully", rows)
}

type UpdateChargebackStatusRequest struct {
	Status string `json:"status"`
}

// UpdateChargebackStatus applies a dispute verdict from manual review.
func (ct *Controller) UpdateChargebackStatus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid chargeback id")
	}
	var req UpdateChargebackStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid json body")
	}

	status := models.ChargebackStatus(strings.ToLower(req.Status))
	cb, err := ct.chargebacks.UpdateStatus(c.UserContext(), uint(id), status)
	if err != nil {
		return helpers.JSONServiceError(c, err)
	}
	ct.logger.Infow("chargeback status updated by admin",
		"chargeback", cb.Reference, "status", cb.Status, "admin", adminID(c))
	return helpers.JSONSuccess(c, "Chargeback status updated", cb)
}
