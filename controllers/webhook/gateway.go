package webhook

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/javascriptando/vips.lat-sub001/helpers"
	"github.com/javascriptando/vips.lat-sub001/models"
	"github.com/javascriptando/vips.lat-sub001/providers"
	"github.com/javascriptando/vips.lat-sub001/services"
)

// Controller receives the settlement gateway's signed callbacks. Every
// handler is safe to retry; the services underneath treat repeats as
// no-ops.
type Controller struct {
	payouts     *services.PayoutService
	chargebacks *services.ChargebackService
	logger      *zap.SugaredLogger
}

func NewController(payouts *services.PayoutService, chargebacks *services.ChargebackService, logger *zap.SugaredLogger) *Controller {
	return &Controller{payouts: payouts, chargebacks: chargebacks, logger: logger}
}

type TransferStatusRequest struct {
	ExternalReference string `json:"external_reference"`
	TransferID        string `json:"transfer_id"`
	Status            string `json:"status"`
}

// TransferStatus folds the gateway's verdict on a transfer into the
// payout it references.
func (ct *Controller) TransferStatus(c *fiber.Ctx) error {
	var req TransferStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid json body")
	}
	if req.ExternalReference == "" {
		return helpers.JSONError(c, fiber.StatusBadRequest, "external_reference is required")
	}

	status := providers.TransferStatus(strings.ToLower(req.Status))
	payout, err := ct.payouts.ApplyTransferStatus(c.UserContext(), req.ExternalReference, req.TransferID, status)
	if err != nil {
		if services.IsKind(err, services.KindReconciliationRequired) {
			ct.logger.Errorw("transfer webhook left payout unreconciled",
				"reference", req.ExternalReference, "error", err)
		}
		return helpers.JSONServiceError(c, err)
	}

	ct.logger.Infow("transfer webhook processed",
		"payout", payout.Reference, "status", payout.Status)
	return helpers.JSONSuccess(c, "Transfer status processed", fiber.Map{
		"reference": payout.Reference,
		"status":    payout.Status,
	})
}

type ChargebackCreatedRequest struct {
	PaymentReference     string `json:"payment_reference"`
	Amount               int64  `json:"amount"`
	ExternalChargebackID string `json:"external_chargeback_id"`
}

// ChargebackCreated opens a chargeback against the referenced payment.
func (ct *Controller) ChargebackCreated(c *fiber.Ctx) error {
	var req ChargebackCreatedRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid json body")
	}
	if req.PaymentReference == "" {
		return helpers.JSONError(c, fiber.StatusBadRequest, "payment_reference is required")
	}

	in := services.RecordChargebackInput{
		PaymentReference: req.PaymentReference,
		Amount:           req.Amount,
	}
	if req.ExternalChargebackID != "" {
		in.ExternalChargebackID = &req.ExternalChargebackID
	}

	cb, err := ct.chargebacks.Record(c.UserContext(), in)
	if err != nil {
		return helpers.JSONServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Chargeback recorded", fiber.Map{
		"reference": cb.Reference,
		"status":    cb.Status,
	})
}

type ChargebackStatusRequest struct {
	ExternalChargebackID string `json:"external_chargeback_id"`
	Status               string `json:"status"`
}

// ChargebackStatus applies a dispute lifecycle transition reported by
// the gateway.
func (ct *Controller) ChargebackStatus(c *fiber.Ctx) error {
	var req ChargebackStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid json body")
	}
	if req.ExternalChargebackID == "" {
		return helpers.JSONError(c, fiber.StatusBadRequest, "external_chargeback_id is required")
	}

	status := models.ChargebackStatus(strings.ToLower(req.Status))
	cb, err := ct.chargebacks.UpdateStatusByExternalID(c.UserContext(), req.ExternalChargebackID, status)
	if err != nil {
		return helpers.JSONServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Chargeback status processed", fiber.Map{
		"reference":       cb.Reference,
		"status":          cb.Status,
		"penalty_applied": cb.PenaltyApplied,
	})
}
