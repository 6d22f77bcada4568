package admin

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/javascriptando/vips.lat-sub001/helpers"
	"github.com/javascriptando/vips.lat-sub001/models"
	"github.com/javascriptando/vips.lat-sub001/services"
)

type CreateFraudFlagRequest struct {
	UserID      *uint          `json:"user_id"`
	CreatorID   *uint          `json:"creator_id"`
	Type        string         `json:"type"`
	Severity    int            `json:"severity"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

// CreateFraudFlag records an anomaly spotted during manual review.
func (ct *Controller) CreateFraudFlag(c *fiber.Ctx) error {
	var req CreateFraudFlagRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid json body")
	}

	flag, err := ct.flags.Create(c.UserContext(), services.CreateFraudFlagInput{
		UserID:      req.UserID,
		CreatorID:   req.CreatorID,
		Type:        models.FraudFlagType(req.Type),
		Severity:    req.Severity,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return helpers.JSONServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Fraud flag created", flag)
}

// ListFraudFlags filters the flag log by query parameters: type,
// resolved, user_id, creator_id, min_severity and limit.
func (ct *Controller) ListFraudFlags(c *fiber.Ctx) error {
	filter := services.FraudFlagFilter{
		MinSeverity: c.QueryInt("min_severity"),
		Limit:       c.QueryInt("limit"),
	}
	if raw := c.Query("type"); raw != "" {
		t := models.FraudFlagType(raw)
		filter.Type = &t
	}
	if raw := c.Query("resolved"); raw != "" {
		resolved, err := strconv.ParseBool(raw)
		if err != nil {
			return helpers.JSONError(c, fiber.StatusBadRequest, "invalid resolved filter")
		}
		filter.Resolved = &resolved
	}
	if v := c.QueryInt("user_id"); v > 0 {
		id := uint(v)
		filter.UserID = &id
	}
	if v := c.QueryInt("creator_id"); v > 0 {
		id := uint(v)
		filter.CreatorID = &id
	}

	flags, err := ct.flags.List(c.UserContext(), filter)
	if err != nil {
		return helpers.JSONServiceError(c, err)
	}
	return helpers.JSONSuccess(c, "Fraud flags retrieved successfully", flags)
}

type ResolveFraudFlagRequest struct {
	ResolvedBy string `json:"resolved_by"`
	Resolution string `json:"resolution"`
}

// ResolveFraudFlag closes a flag. The reviewer comes from the admin
// token subject, with the body as fallback for tokens without one.
func (ct *Controller) ResolveFraudFlag(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid flag id")
	}
	var req ResolveFraudFlagRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, fiber.StatusBadRequest, "invalid json body")
	}

	resolvedBy := adminID(c)
	if resolvedBy == "" {
		resolvedBy = req.ResolvedBy
	}

	flag, err := ct.flags.Resolve(c.UserContext(), uint(id), resolvedBy, req.Resolution)
	if err != nil {
		return helpers.JSONServiceError(c, err)
	}
	ct.logger.Infow("fraud flag resolved", "flag_id", flag.ID, "resolved_by", resolvedBy)
	return helpers.JSONSuccess(c, "Fraud flag resolved", flag)
}
