package caching

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/contre95/xiaozhi-adapter/src/features/config"
	"github.com/contre95/xiaozhi-adapter/src/features/resolving"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CacheAdmin inspects and clears the asset caches.
type CacheAdmin interface {
	Snapshot() resolving.CacheSnapshot
	ClearCache(kind resolving.CacheKind) (resolving.CacheSnapshot, error)
}

// Handler handles cache health and maintenance requests.
type Handler struct {
	caches        CacheAdmin
	configManager *config.Manager
	validate      *validator.Validate
}

// NewHandler creates a new caching handler.
func NewHandler(caches CacheAdmin, configManager *config.Manager) *Handler {
	return &Handler{
		caches:        caches,
		configManager: configManager,
		validate:      validator.New(),
	}
}

type clearRequest struct {
	Type string `json:"type" validate:"oneof=all audio lyric"`
}

// Health reports cache content and the effective configuration.
func (h *Handler) Health(c *fiber.Ctx) error {
	snap := h.caches.Snapshot()
	cfg := h.configManager.Get()
	return c.JSON(fiber.Map{
		"status":           "ok",
		"source":           "xiaozhishop",
		"audio_cache_size": snap.AudioSize,
		"lyric_cache_size": snap.LyricSize,
		"cached_songs":     snap.AudioKeys,
		"cached_lyrics":    snap.LyricKeys,
		"config": fiber.Map{
			"port":            cfg.Server.Port,
			"xiaozhishop_url": cfg.Upstream.BaseURL(),
			"cache_max_size":  cfg.Cache.MaxSize,
		},
	})
}

// ClearCache empties the audio cache, the lyric cache or both.
func (h *Handler) ClearCache(c *fiber.Ctx) error {
	req := clearRequest{Type: string(resolving.CacheAll)}
	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			slog.Error("Clear cache error", "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if req.Type == "" {
			req.Type = string(resolving.CacheAll)
		}
	}
	if err := h.validate.Struct(req); err != nil {
		slog.Error("Clear cache error", "type", req.Type, "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("invalid cache type %q", req.Type)})
	}

	snap, err := h.caches.ClearCache(resolving.CacheKind(req.Type))
	if err != nil {
		slog.Error("Clear cache error", "type", req.Type, "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"success":          true,
		"message":          fmt.Sprintf("Cleared %s cache", req.Type),
		"audio_cache_size": snap.AudioSize,
		"lyric_cache_size": snap.LyricSize,
	})
}
