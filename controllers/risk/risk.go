package risk

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/javascriptando/vips.lat-sub001/helpers"
	"github.com/javascriptando/vips.lat-sub001/services"
)

type Controller struct {
	identity *services.IdentityService
	velocity *services.VelocityService
	logger   *zap.SugaredLogger
}

func NewController(identity *services.IdentityService, velocity *services.VelocityService, logger *zap.SugaredLogger) *Controller {
	return &Controller{identity: identity, velocity: velocity, logger: logger}
}

type CheckDocumentRequest struct {
	UserID   uint   `json:"user_id"`
	Document string `json:"document"`
}

// CheckDocument validates a CPF or CNPJ checksum and, when it passes,
// reports any other account already registered with it.
func (ct *Controller) CheckDocument(c *fiber.Ctx) error {
	var req CheckDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid json body")
	}
	if req.Document == "" {
		return helpers.JSONError(c, fiber.StatusBadRequest, "document is required")
	}

	if !services.ValidDocument(req.Document) {
		return helpers.JSONSuccess(c, "Document checked", fiber.Map{
			"valid":    false,
			"conflict": nil,
		})
	}

	match, err := ct.identity.FindDuplicate(c.UserContext(), req.UserID, req.Document)
	if err != nil {
		return helpers.JSONServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Document checked", fiber.Map{
		"valid":    true,
		"conflict": match,
	})
}

type RecordFingerprintRequest struct {
	UserID  uint                   `json:"user_id"`
	Signals services.DeviceSignals `json:"signals"`
}

// RecordFingerprint stores the device fingerprint for a user session.
func (ct *Controller) RecordFingerprint(c *fiber.Ctx) error {
	var req RecordFingerprintRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid json body")
	}
	if req.UserID == 0 {
		return helpers.JSONError(c, fiber.StatusBadRequest, "user_id is required")
	}

	row, err := ct.identity.RecordFingerprint(c.UserContext(), req.UserID, req.Signals)
	if err != nil {
		return helpers.JSONServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Fingerprint recorded", fiber.Map{
		"fingerprint":   row.Fingerprint,
		"first_seen_at": row.FirstSeenAt,
		"last_seen_at":  row.LastSeenAt,
	})
}

type CheckVelocityRequest struct {
	UserID        uint                  `json:"user_id"`
	Kind          services.VelocityKind `json:"kind"`
	WindowMinutes int                   `json:"window_minutes"`
	Limit         int64                 `json:"limit"`
}

// CheckVelocity counts recent activity for a user against the caller's
// window and limit. The answer is advisory; the caller decides what to
// do with a disallowed result.
func (ct *Controller) CheckVelocity(c *fiber.Ctx) error {
	var req CheckVelocityRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid json body")
	}
	if req.UserID == 0 {
		return helpers.JSONError(c, fiber.StatusBadRequest, "user_id is required")
	}

	result, err := ct.velocity.Check(c.UserContext(), req.Kind, req.UserID, req.WindowMinutes, req.Limit)
	if err != nil {
		return helpers.JSONServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Velocity checked", result)
}
