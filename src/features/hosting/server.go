package hosting

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/contre95/xiaozhi-adapter/src/features/caching"
	"github.com/contre95/xiaozhi-adapter/src/features/config"
	"github.com/contre95/xiaozhi-adapter/src/features/metrics"
	"github.com/contre95/xiaozhi-adapter/src/features/proxying"
	"github.com/contre95/xiaozhi-adapter/src/features/resolving"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Manager, resolvingService *resolving.Service, gatherer prometheus.Gatherer) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal server error"
			var e *fiber.Error
			if errors.As(err, &e) && e.Code != fiber.StatusInternalServerError {
				code = e.Code
				msg = e.Message
			}
			slog.Error("Request failed", "path", c.Path(), "status", code, "error", err)
			return c.Status(code).JSON(fiber.Map{"error": msg})
		},
		AppName:               "Xiaozhi Adapter",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	app.Use(RequestIDMiddleware())
	app.Use(LogAllRequestsMiddleware())
	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.Get().Logger.Level == "debug"}))
	app.Use(cors.New())

	resolving.RegisterRoutes(app, resolving.NewHandler(resolvingService))
	proxying.RegisterRoutes(app, proxying.NewHandler(resolvingService))
	caching.RegisterRoutes(app, caching.NewHandler(resolvingService, cfg))
	config.RegisterRoutes(app, cfg)
	if gatherer != nil {
		metrics.RegisterRoutes(app, gatherer)
	}

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// App exposes the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
