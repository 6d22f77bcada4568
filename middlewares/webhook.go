package middlewares

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/javascriptando/vips.lat-sub001/helpers"
)

// WebhookAuth verifies the gateway's HMAC-SHA256 signature over the raw
// request body, sent in X-Gateway-Signature as lowercase hex.
func WebhookAuth() fiber.Handler {
	secret := os.Getenv("GATEWAY_WEBHOOK_SECRET")

	return func(c *fiber.Ctx) error {
		if secret == "" {
			return helpers.JSONError(c, fiber.StatusUnauthorized, "webhook auth is not configured")
		}
		signature := c.Get("X-Gateway-Signature")
		if signature == "" {
			return helpers.JSONError(c, fiber.StatusUnauthorized, "missing signature")
		}

		h := hmac.New(sha256.New, []byte(secret))
		h.Write(c.Body())
		expected := hex.EncodeToString(h.Sum(nil))

		if !hmac.Equal([]byte(signature), []byte(expected)) {
			return helpers.JSONError(c, fiber.StatusUnauthorized, "invalid signature")
		}
		return c.Next()
	}
}
