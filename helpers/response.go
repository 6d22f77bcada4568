package helpers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/javascriptando/vips.lat-sub001/services"
)

func JSONSuccess(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func JSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
		"data":    nil,
	})
}

// JSONServiceError translates a service error into the HTTP envelope.
// Unclassified errors answer 500 without leaking their text.
func JSONServiceError(c *fiber.Ctx, err error) error {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		return JSONError(c, statusForKind(svcErr.Kind), svcErr.Message)
	}
	return JSONError(c, fiber.StatusInternalServerError, "internal error")
}

func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindValidationFailed, services.KindBelowMinimum:
		return fiber.StatusBadRequest
	case services.KindKycRequired, services.KindPayoutsBlocked:
		return fiber.StatusForbidden
	case services.KindRateLimited:
		return fiber.StatusTooManyRequests
	case services.KindInsufficientFunds:
		return fiber.StatusUnprocessableEntity
	case services.KindExternalGateway:
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}
