package api

import (
	"github.com/gofiber/fiber/v2"

	customlog "github.com/sharminesan/tb-backend/pkg/log"
	"github.com/sharminesan/tb-backend/services"
)

// ConfigHandler serves read-only configuration introspection.
type ConfigHandler struct {
	svc    *services.TeleopConfigService
	logger customlog.Logger
}

// NewConfigHandler creates the configuration handler.
func NewConfigHandler(svc *services.TeleopConfigService, logger customlog.Logger) *ConfigHandler {
	return &ConfigHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the config endpoints under the given router.
func (h *ConfigHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/config", h.getConfig)
	router.Get("/config/yaml", h.getConfigYAML)
	router.Post("/config/reload", h.reloadConfig)
}

func (h *ConfigHandler) getConfig(c *fiber.Ctx) error {
	return c.JSON(h.svc.Get())
}

func (h *ConfigHandler) getConfigYAML(c *fiber.Ctx) error {
	data, err := h.svc.GetYAML()
	if err != nil {
		h.logger.Errorf("Failed to render config as YAML: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to render configuration",
		})
	}
	c.Set(fiber.HeaderContentType, "application/yaml")
	return c.Send(data)
}

func (h *ConfigHandler) reloadConfig(c *fiber.Ctx) error {
	if err := h.svc.Reload(); err != nil {
		h.logger.Errorf("Config reload failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to reload configuration",
		})
	}
	return c.JSON(fiber.Map{"success": true, "config": h.svc.Get()})
}
