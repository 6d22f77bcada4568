package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/javascriptando/vips.lat-sub001/controllers/admin"
	"github.com/javascriptando/vips.lat-sub001/controllers/payout"
	"github.com/javascriptando/vips.lat-sub001/controllers/risk"
	"github.com/javascriptando/vips.lat-sub001/controllers/webhook"
	"github.com/javascriptando/vips.lat-sub001/middlewares"
)

// Controllers bundles everything Setup wires onto the app.
type Controllers struct {
	Payout  *payout.Controller
	Risk    *risk.Controller
	Admin   *admin.Controller
	Webhook *webhook.Controller
}

func Setup(app *fiber.App, ct Controllers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// settlement surface, called by sibling services on behalf of creators
	payoutroutes := app.Group("/payouts", middlewares.InternalAuth())
	payoutroutes.Post("/", ct.Payout.RequestPayout)
	payoutroutes.Get("/:creatorId", ct.Payout.ListPayouts)
	app.Get("/balance/:creatorId", middlewares.InternalAuth(), ct.Payout.GetBalance)

	// risk signals
	riskroutes := app.Group("/risk", middlewares.InternalAuth())
	riskroutes.Post("/identity/check", ct.Risk.CheckDocument)
	riskroutes.Post("/fingerprints", ct.Risk.RecordFingerprint)
	riskroutes.Post("/velocity/check", ct.Risk.CheckVelocity)

	// manual review
	adminroutes := app.Group("/admin", middlewares.AdminAuth())
	adminroutes.Post("/fraud-flags", ct.Admin.CreateFraudFlag)
	adminroutes.Get("/fraud-flags", ct.Admin.ListFraudFlags)
	adminroutes.Post("/fraud-flags/:id/resolve", ct.Admin.ResolveFraudFlag)
	adminroutes.Post("/chargebacks", ct.Admin.RecordChargeback)
	adminroutes.Get("/chargebacks", ct.Admin.ListChargebacks)
	adminroutes.Post("/chargebacks/:id/status", ct.Admin.UpdateChargebackStatus)
	adminroutes.Get("/users/:userId/fingerprints", ct.Admin.ListUserFingerprints)

	// signed gateway callbacks
	hookroutes := app.Group("/webhooks/gateway", middlewares.WebhookAuth())
	hookroutes.Post("/transfers", ct.Webhook.TransferStatus)
	hookroutes.Post("/chargebacks", ct.Webhook.ChargebackCreated)
	hookroutes.Post("/chargebacks/status", ct.Webhook.ChargebackStatus)
}
