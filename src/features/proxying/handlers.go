package proxying

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/contre95/xiaozhi-adapter/src/music"
	"github.com/gofiber/fiber/v2"
)

const cacheControl = "public, max-age=86400"

// AssetSource serves assets prefetched during a search.
type AssetSource interface {
	Audio(id string) ([]byte, error)
	Lyric(id string) (string, error)
}

// Handler handles proxy reads of cached assets.
type Handler struct {
	assets AssetSource
}

// NewHandler creates a new proxy handler
func NewHandler(assets AssetSource) *Handler {
	return &Handler{assets: assets}
}

// ProxyAudio serves cached audio bytes.
func (h *Handler) ProxyAudio(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing id parameter"})
	}
	slog.Info("Serving audio", "song_id", id)

	data, err := h.assets.Audio(id)
	if err != nil {
		slog.Warn("Song not in audio cache", "song_id", id, "error", err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Audio not in cache, please search again"})
	}

	c.Set(fiber.HeaderContentType, "audio/mpeg")
	c.Set(fiber.HeaderAcceptRanges, "bytes")
	c.Set(fiber.HeaderCacheControl, cacheControl)
	slog.Debug("Serving audio from cache", "song_id", id, "bytes", len(data))
	return c.Send(data)
}

// ProxyLyric serves a cached lyric as raw LRC text or, with format=json, as
// timed lines.
func (h *Handler) ProxyLyric(c *fiber.Ctx) error {
	id := c.Query("id")
	format := c.Query("format", "text")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing id parameter"})
	}
	slog.Info("Serving lyric", "song_id", id, "format", format)

	lyric, err := h.assets.Lyric(id)
	if err != nil {
		slog.Warn("Lyric not in cache", "song_id", id, "error", err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Lyric not in cache, please search again"})
	}

	if format == "json" {
		lines, err := parseLyric(lyric)
		if err != nil {
			slog.Warn("Failed to parse LRC to JSON", "song_id", id, "error", err)
			return c.JSON(fiber.Map{
				"success": true,
				"format":  "text",
				"lyric":   lyric,
			})
		}
		return c.JSON(fiber.Map{
			"success": true,
			"format":  "json",
			"lyrics":  lines,
		})
	}

	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, cacheControl)
	return c.SendString(lyric)
}

// parseLyric guards the parser so a bad lyric degrades to raw text.
func parseLyric(raw string) (lines []music.LyricLine, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lrc parser panic: %v", r)
		}
	}()
	lines = music.ParseLRC(raw)
	if lines == nil {
		return nil, errors.New("lrc parser returned no result")
	}
	return lines, nil
}
