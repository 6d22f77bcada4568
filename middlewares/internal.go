package middlewares

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/javascriptando/vips.lat-sub001/helpers"
)

// InternalAuth guards routes meant for sibling services inside the
// platform. Callers present the shared INTERNAL_API_TOKEN in the
// X-Internal-Token header.
func InternalAuth() fiber.Handler {
	expected := os.Getenv("INTERNAL_API_TOKEN")

	return func(c *fiber.Ctx) error {
		if expected == "" || c.Get("X-Internal-Token") != expected {
			return helpers.JSONError(c, fiber.StatusUnauthorized, "invalid internal token")
		}
		return c.Next()
	}
}
