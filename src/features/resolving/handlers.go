package resolving

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler handles song search requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new resolving handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// StreamPCM searches a song and returns its proxied descriptor.
func (h *Handler) StreamPCM(c *fiber.Ctx) error {
	song := strings.TrimSpace(c.Query("song"))
	artist := strings.TrimSpace(c.Query("artist"))
	slog.Debug("StreamPCM handler called", "song", song, "artist", artist)

	res, err := h.service.Resolve(c.UserContext(), song, artist)
	if err != nil {
		return searchFailed(c, song, artist, err)
	}
	return c.JSON(res)
}

// searchFailed maps a resolution error to its response. Upstream error
// details stay in the logs so no upstream URL reaches the client.
func searchFailed(c *fiber.Ctx, song, artist string, err error) error {
	switch {
	case errors.Is(err, ErrMissingSong):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrMissingSong.Error()})
	case errors.Is(err, ErrSongNotFound):
		if artist == "" {
			artist = "Unknown"
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  ErrSongNotFound.Error(),
			"title":  song,
			"artist": artist,
		})
	case errors.Is(err, ErrNoAudioAvailable):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrNoAudioAvailable.Error()})
	case errors.Is(err, ErrUpstreamUnavailable):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "API request failed"})
	case errors.Is(err, ErrUpstreamMalformed):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Invalid upstream response"})
	default:
		slog.Error("Search failed", "song", song, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
