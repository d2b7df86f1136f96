package caching

import "github.com/gofiber/fiber/v2"

// RegisterRoutes registers health and cache maintenance routes.
func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/health", handler.Health)
	app.Post("/clear_cache", handler.ClearCache)
}
