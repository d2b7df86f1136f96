package proxying

import "github.com/gofiber/fiber/v2"

// RegisterRoutes registers the proxy read routes.
func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/proxy_audio", handler.ProxyAudio)
	app.Get("/proxy_lyric", handler.ProxyLyric)
}
