package server

import (
	"log"

	"deonai-be/internal/bootstrap"
	"deonai-be/internal/config"
	"deonai-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const healthPath = "/api/health"

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB
		AppName:   "deonai-gateway " + cfg.App.Version,
	})

	// Middleware
	app.Use(serverutils.SecurityHeaders())

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.App.CorsAllowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Type, Retry-After",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware(container.Logger))

	app.Use(serverutils.RateLimitMiddleware(
		container.Limiter,
		cfg.RateLimit.MaxRequests,
		cfg.RateLimit.Window,
		healthPath,
	))

	// Routes
	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")
	protected := serverutils.JwtMiddleware(c.Verifier)

	c.HealthController.RegisterRoutes(api)
	c.ModelController.RegisterRoutes(api)

	c.ChatController.RegisterRoutes(api, protected)
	c.ConversationController.RegisterRoutes(api, protected)
}
