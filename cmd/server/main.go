package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/studypal/studypal-backend/internal/api"
	"github.com/studypal/studypal-backend/internal/auth"
	"github.com/studypal/studypal-backend/internal/config"
	"github.com/studypal/studypal-backend/internal/kv"
	"github.com/studypal/studypal-backend/internal/providers"
	"github.com/studypal/studypal-backend/internal/providers/gemini"
	"github.com/studypal/studypal-backend/internal/providers/openai"
	"github.com/studypal/studypal-backend/internal/services"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	store, err := kv.Open(cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("failed to open storage")
	}
	defer store.Close()

	registry := providers.NewRegistry()
	registerProviders(context.Background(), cfg, registry, log)

	svc := services.NewServices(cfg, store, registry, log)
	if err := svc.Store.Load(context.Background()); err != nil {
		log.WithError(err).Fatal("failed to load sessions")
	}

	authService := auth.NewService(cfg.Auth.PasswordHash, cfg.Auth.JWTSecret)
	if !authService.Enabled() {
		log.Warn("auth is disabled; set auth.password_hash to protect the API")
	}

	app := fiber.New(fiber.Config{
		AppName:      "StudyPal Backend",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	api.SetupRoutes(app, svc, authService)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.WithField("addr", addr).Info("StudyPal backend starting")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func registerProviders(ctx context.Context, cfg *config.Config, registry *providers.Registry, log *logrus.Logger) {
	for id, pc := range cfg.Providers {
		switch pc.Type {
		case "gemini":
			p, err := gemini.NewProvider(ctx, pc)
			if err != nil {
				log.WithError(err).WithField("provider", id).Warn("skipping provider")
				continue
			}
			registry.Register(id, p)
		case "openai":
			p, err := openai.NewProvider(pc)
			if err != nil {
				log.WithError(err).WithField("provider", id).Warn("skipping provider")
				continue
			}
			registry.Register(id, p)
		default:
			log.WithField("provider", id).WithField("type", pc.Type).Warn("unknown provider type")
		}
	}
	if len(registry.List()) == 0 {
		log.Warn("no AI providers configured; chat turns will fail until one is added")
	} else if !registry.Has(cfg.DefaultProvider) {
		log.WithField("provider", cfg.DefaultProvider).
			Warn("default provider is not configured; requests must name one explicitly")
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func corsOrigins() string {
	origins := os.Getenv("STUDYPAL_CORS_ORIGINS")
	if origins == "" {
		return "http://localhost:5173,http://localhost:3000"
	}
	return origins
}
