package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/studypal/studypal-backend/internal/api/handlers"
	"github.com/studypal/studypal-backend/internal/api/middleware"
	"github.com/studypal/studypal-backend/internal/auth"
	"github.com/studypal/studypal-backend/internal/services"
)

// SetupRoutes configures all API routes.
func SetupRoutes(app *fiber.App, svc *services.Services, authService *auth.Service) {
	api := app.Group("/api/v1")

	api.Post("/auth/login", handlers.Login(authService, svc))
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "studypal-backend",
		})
	})

	protected := api.Group("", middleware.RequireAuth(authService))

	// Session management
	protected.Post("/sessions", handlers.CreateSession(svc))
	protected.Get("/sessions", handlers.GetSessions(svc))
	protected.Get("/sessions/:id", handlers.GetSession(svc))
	protected.Get("/sessions/:id/messages", handlers.GetSessionMessages(svc))
	protected.Post("/sessions/:id/activate", handlers.ActivateSession(svc))
	protected.Delete("/sessions/:id", handlers.DeleteSession(svc))

	// Study features
	chatHandler := handlers.NewChatHandler(svc.Chat)
	protected.Post("/chat/stream", chatHandler.StreamSSE)
	protected.Post("/summarize", handlers.Summarize(svc))
	protected.Post("/suggest", handlers.Suggest(svc))
	protected.Post("/commands", handlers.InterpretCommand(svc))

	// Settings & activity
	protected.Get("/settings", handlers.GetSettings(svc))
	protected.Put("/settings", handlers.UpdateSettings(svc))
	protected.Get("/audit", handlers.GetAudit(svc))

	// WebSocket chat stream. The upgrade check runs through the same auth
	// middleware; the token rides in as a query parameter.
	app.Use("/ws/chat", middleware.RequireAuth(authService), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(chatHandler.StreamWS))
}
