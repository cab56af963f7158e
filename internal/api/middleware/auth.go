package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/studypal/studypal-backend/internal/auth"
)

// RequireAuth validates the bearer token on protected routes. When auth is
// not configured the middleware is a pass-through, so a local install works
// without a login step. WebSocket upgrades carry the token as a query
// parameter because browsers can't set headers on them.
func RequireAuth(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !authService.Enabled() {
			return c.Next()
		}

		token := bearerToken(c.Get("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		if err := authService.Validate(token); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}
		return c.Next()
	}
}

func bearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
