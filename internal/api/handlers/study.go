package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/studypal/studypal-backend/internal/api/models"
	"github.com/studypal/studypal-backend/internal/services"
)

// Summarize handles POST /summarize: document text in, summary out, both
// stored on the session.
func Summarize(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.SummarizeRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		sessionID, summary, err := svc.Summary.Summarize(c.Context(), req.SessionID, req.Document)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"session_id": sessionID,
			"summary":    summary,
		})
	}
}

// Suggest handles POST /suggest: partial query in, up to five suggestion
// strings out. Failures surface as an empty list, never an error status.
func Suggest(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.SuggestRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		return c.JSON(fiber.Map{
			"suggestions": svc.Suggest.Suggest(c.Context(), req.Query),
		})
	}
}

// InterpretCommand handles POST /commands: a final speech transcript in, the
// resolved action out.
func InterpretCommand(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CommandRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		return c.JSON(svc.Voice.Interpret(c.Context(), req.Transcript))
	}
}

// GetAudit handles GET /audit for the settings screen's activity view.
func GetAudit(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		return c.JSON(fiber.Map{"events": svc.Audit.Recent(limit)})
	}
}
