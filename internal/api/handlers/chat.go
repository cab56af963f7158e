package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/studypal/studypal-backend/internal/api/models"
	"github.com/studypal/studypal-backend/internal/providers"
	"github.com/studypal/studypal-backend/internal/services"
)

// ChatHandler serves chat turns over WebSocket and SSE.
type ChatHandler struct {
	chat *services.ChatService
}

// NewChatHandler creates a chat handler.
func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// StreamWS handles WebSocket /ws/chat: one request frame in, a stream of
// event frames out, connection closed after the terminal frame.
func (h *ChatHandler) StreamWS(c *websocket.Conn) {
	defer c.Close()

	var req models.ChatRequest
	if err := c.ReadJSON(&req); err != nil {
		c.WriteJSON(models.StreamEvent{
			Type: models.EventError,
			Error: &models.StreamError{
				Category: providers.CategoryMalformed,
				Message:  "Failed to parse request",
			},
		})
		return
	}

	events, err := h.chat.StreamTurn(context.Background(), req)
	if err != nil {
		c.WriteJSON(models.StreamEvent{
			Type: models.EventError,
			Error: &models.StreamError{
				Category: providers.Classify(err),
				Message:  err.Error(),
			},
		})
		return
	}

	for event := range events {
		if err := c.WriteJSON(event); err != nil {
			// Client went away; drain so the turn's remaining events are
			// released while the service finishes persisting.
			for range events {
			}
			break
		}
	}
}

// StreamSSE handles POST /chat/stream as server-sent events, for clients
// that can't hold a WebSocket.
func (h *ChatHandler) StreamSSE(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	events, err := h.chat.StreamTurn(c.Context(), req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for event := range events {
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			if err := w.Flush(); err != nil {
				// Client went away; drain so the turn's remaining events
				// are released while the service finishes persisting.
				for range events {
				}
				return
			}
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		w.Flush()
	})
	return nil
}
