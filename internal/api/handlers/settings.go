package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studypal/studypal-backend/internal/api/models"
	"github.com/studypal/studypal-backend/internal/services"
)

// GetSettings returns the persisted UI settings.
func GetSettings(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(svc.Settings.Get(c.Context()))
	}
}

// UpdateSettings stores the UI settings.
func UpdateSettings(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var settings models.Settings
		if err := c.BodyParser(&settings); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		svc.Settings.Set(c.Context(), settings)
		return c.JSON(settings)
	}
}
