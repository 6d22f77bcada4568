package middlewares

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/javascriptando/vips.lat-sub001/helpers"
)

// AdminAuth admits only bearer tokens signed with ADMIN_JWT_SECRET that
// carry the admin role. The token subject lands in Locals under
// "admin_id" for audit fields.
func AdminAuth() fiber.Handler {
	secret := os.Getenv("ADMIN_JWT_SECRET")

	return func(c *fiber.Ctx) error {
		if secret == "" {
			return helpers.JSONError(c, fiber.StatusUnauthorized, "admin auth is not configured")
		}
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return helpers.JSONError(c, fiber.StatusUnauthorized, "missing bearer token")
		}

		token, err := jwt.Parse(
			strings.TrimPrefix(header, "Bearer "),
			func(t *jwt.Token) (any, error) { return []byte(secret), nil },
			jwt.WithValidMethods([]string{"HS256"}),
		)
		if err != nil || !token.Valid {
			return helpers.JSONError(c, fiber.StatusUnauthorized, "invalid token")
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || claims["role"] != "admin" {
			return helpers.JSONError(c, fiber.StatusForbidden, "admin role required")
		}
		if sub, _ := claims["sub"].(string); sub != "" {
			c.Locals("admin_id", sub)
		}
		return c.Next()
	}
}
