package api

import (
	"encoding/json"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/sharminesan/tb-backend/pkg/hub"
	customlog "github.com/sharminesan/tb-backend/pkg/log"
	"github.com/sharminesan/tb-backend/pkg/motion"
)

// WebSocketHandler serves the two websocket endpoints: /ws/events for the
// outbound event stream and /ws/control for low-latency velocity input.
type WebSocketHandler struct {
	hub        *hub.Hub
	controller *motion.Controller
	logger     customlog.Logger
}

// NewWebSocketHandler creates the websocket handler set.
func NewWebSocketHandler(h *hub.Hub, controller *motion.Controller, logger customlog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: h, controller: controller, logger: logger}
}

// RegisterRoutes mounts the upgrade middleware and the websocket endpoints.
func (h *WebSocketHandler) RegisterRoutes(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/events", websocket.New(h.handleEvents))
	app.Get("/ws/control", websocket.New(h.handleControl))
}

// handleEvents attaches a broadcast-only client to the event hub.
func (h *WebSocketHandler) handleEvents(conn *websocket.Conn) {
	client := hub.NewClient(h.hub, conn, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump(nil)
}

// handleControl attaches a client that both receives events and accepts
// inbound twist messages.
func (h *WebSocketHandler) handleControl(conn *websocket.Conn) {
	client := hub.NewClient(h.hub, conn, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump(h.onControlMessage)

	// The control channel dropping mid-drive must not leave the base moving.
	h.controller.Stop()
}

// onControlMessage applies one inbound twist. Malformed frames are logged
// and skipped; the stream continues.
func (h *WebSocketHandler) onControlMessage(message []byte) {
	var msg TwistMsg
	if err := json.Unmarshal(message, &msg); err != nil {
		h.logger.Warnf("Ignoring malformed control message: %v", err)
		return
	}
	h.controller.CustomMove(
		msg.Linear.X, msg.Linear.Y, msg.Linear.Z,
		msg.Angular.X, msg.Angular.Y, msg.Angular.Z,
	)
}
