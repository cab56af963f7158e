package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/studypal/studypal-backend/internal/audit"
	"github.com/studypal/studypal-backend/internal/services"
	"github.com/studypal/studypal-backend/internal/session"
)

// CreateSession creates a new study session.
func CreateSession(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Title string `json:"title"`
		}
		if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		sess := svc.Store.Create(c.Context(), req.Title)
		svc.Audit.Record(audit.EventSessionCreate, sess.ID, "session created", nil)
		return c.JSON(sess)
	}
}

// GetSessions returns all sessions, most recently updated first.
func GetSessions(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sessions": svc.Store.List(),
			"active":   svc.Store.ActiveID(),
			"mode":     svc.Store.Mode(),
		})
	}
}

// GetSession returns a specific session.
func GetSession(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := svc.Store.Get(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}
		return c.JSON(sess)
	}
}

// GetSessionMessages returns a session's transcript.
func GetSessionMessages(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := svc.Store.Get(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}
		return c.JSON(fiber.Map{"messages": sess.Messages})
	}
}

// ActivateSession switches the active session.
func ActivateSession(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Store.SetActive(c.Params("id")); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}
		return c.JSON(fiber.Map{"active": svc.Store.ActiveID()})
	}
}

// DeleteSession deletes a session; if it was active the most recently
// updated survivor takes over.
func DeleteSession(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := svc.Store.Delete(c.Context(), id); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Session not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		svc.Audit.Record(audit.EventSessionDelete, id, "session deleted", nil)
		return c.JSON(fiber.Map{"active": svc.Store.ActiveID()})
	}
}
