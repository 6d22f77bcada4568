package admin

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/javascriptando/vips.lat-sub001/helpers"
	"github.com/javascriptando/vips.lat-sub001/services"
)

// Controller serves the manual review surface: fraud flags, chargeback
// verdicts and device history. Everything here sits behind AdminAuth.
type Controller struct {
	flags       *services.FraudFlagService
	chargebacks *services.ChargebackService
	identity    *services.IdentityService
	logger      *zap.SugaredLogger
}

func NewController(
	flags *services.FraudFlagService,
	chargebacks *services.ChargebackService,
	identity *services.IdentityService,
	logger *zap.SugaredLogger,
) *Controller {
	return &Controller{flags: flags, chargebacks: chargebacks, identity: identity, logger: logger}
}

// ListUserFingerprints shows every device a user has been seen on.
func (ct *Controller) ListUserFingerprints(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("userId")
	if err != nil || userID <= 0 {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid user id")
	}

	rows, err := ct.identity.FingerprintsForUser(c.UserContext(), uint(userID))
	if err != nil {
		return helpers.JSONServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Fingerprints retrieved successfully", rows)
}

// adminID pulls the reviewer identity the auth middleware stored.
func adminID(c *fiber.Ctx) string {
	id, _ := c.Locals("admin_id").(string)
	return id
}
