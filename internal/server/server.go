package server

import (
	"context"
	"log"
	"strings"

	"survey-assistant-be/internal/bootstrap"
	"survey-assistant-be/internal/config"
	"survey-assistant-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const bodyLimit = 1 << 20 // candidate lists with embeddings stay well under this

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

type healthResponse struct {
	Environment string `json:"environment"`
	Sessions    int    `json:"sessions"`
	CacheSize   int    `json:"cache_size"`
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		AppName:   "survey-assistant-memory",
		BodyLimit: bodyLimit,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: !strings.Contains(cfg.App.CorsAllowedOrigins, "*"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, DELETE, OPTIONS",
	}))
	app.Use(otelfiber.Middleware())
	app.Use(serverutils.ErrorHandlerMiddleware())

	s := &Server{app: app, cfg: cfg, container: container}
	app.Get("/healthz", s.health)

	container.MemoryController.RegisterRoutes(app.Group("/api"))
	return s
}

func (s *Server) health(ctx *fiber.Ctx) error {
	stats := s.container.Manager.Stats()
	return ctx.JSON(serverutils.SuccessResponse("ok", healthResponse{
		Environment: s.cfg.App.Environment,
		Sessions:    stats.Sessions,
		CacheSize:   stats.Cache.Size,
	}))
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("[INFO] Memory service listening on :%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
