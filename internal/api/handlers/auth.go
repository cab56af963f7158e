package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studypal/studypal-backend/internal/audit"
	"github.com/studypal/studypal-backend/internal/auth"
	"github.com/studypal/studypal-backend/internal/services"
)

// Login handles POST /auth/login, exchanging the configured password for a
// bearer token.
func Login(authService *auth.Service, svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !authService.Enabled() {
			return c.JSON(fiber.Map{"token": "", "auth_disabled": true})
		}

		var req struct {
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		token, err := authService.Login(req.Password)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid password",
			})
		}

		svc.Audit.Record(audit.EventLogin, "", "user logged in", nil)
		return c.JSON(fiber.Map{"token": token})
	}
}
