package config

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the config feature.
type Handler struct {
	configManager *Manager
}

// NewHandler creates a new handler for the config feature.
func NewHandler(configManager *Manager) *Handler {
	return &Handler{
		configManager: configManager,
	}
}

// GetConfig returns the effective upstream and cache configuration.
func (h *Handler) GetConfig(c *fiber.Ctx) error {
	slog.Debug("GetConfig handler called")
	cfg := h.configManager.Get()

	return c.JSON(fiber.Map{
		"xiaozhishop": fiber.Map{
			"host":     cfg.Upstream.Host,
			"port":     cfg.Upstream.Port,
			"https":    cfg.Upstream.HTTPS,
			"full_url": cfg.Upstream.BaseURL(),
		},
		"cache_max_size": cfg.Cache.MaxSize,
		"server_port":    cfg.Server.Port,
	})
}

// UpdateConfig applies the fields present in the JSON body. Either every
// field is applied or, when one is rejected, none is.
func (h *Handler) UpdateConfig(c *fiber.Ctx) error {
	slog.Info("Configuration update requested")

	var update Update
	if err := json.Unmarshal(c.Body(), &update); err != nil {
		slog.Warn("Rejected configuration update", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	cfg, err := h.configManager.Apply(update)
	if err != nil {
		slog.Warn("Rejected configuration update", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	slog.Info("Configuration updated in memory",
		"xiaozhishop_url", cfg.Upstream.BaseURL(),
		"cache_max_size", cfg.Cache.MaxSize,
		"fields_changed", !update.Empty(),
	)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Config updated successfully",
		"config": fiber.Map{
			"xiaozhishop_url": cfg.Upstream.BaseURL(),
			"cache_max_size":  cfg.Cache.MaxSize,
		},
	})
}
