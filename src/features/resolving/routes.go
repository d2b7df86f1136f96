package resolving

import "github.com/gofiber/fiber/v2"

// RegisterRoutes registers the song search route.
func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/stream_pcm", handler.StreamPCM)
}
