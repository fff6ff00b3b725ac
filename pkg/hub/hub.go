// Package hub fans outbound events out to connected websocket clients. One
// goroutine owns the client set; registration, removal and broadcast all go
// through its channels, so no lock is shared with connection handlers.
package hub

import (
	"encoding/json"
	"fmt"

	customlog "github.com/sharminesan/tb-backend/pkg/log"
)

// broadcastBuffer bounds pending broadcasts before Broadcast starts dropping.
const broadcastBuffer = 256

// Hub is the event fan-out point.
type Hub struct {
	logger customlog.Logger

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	quit       chan struct{}
}

// NewHub creates an idle hub; call Run to start it.
func NewHub(logger customlog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBuffer),
		quit:       make(chan struct{}),
	}
}

// Run processes hub events until Stop is called. Meant to run as a
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Infof("Event client connected (%d total)", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Infof("Event client disconnected (%d total)", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer: drop it rather than stall the fan-out.
					delete(h.clients, client)
					close(client.send)
					h.logger.Warnf("Dropped slow event client (%d total)", len(h.clients))
				}
			}

		case <-h.quit:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		}
	}
}

// Stop shuts the hub down and disconnects all clients.
func (h *Hub) Stop() {
	close(h.quit)
}

// Register adds a client to the fan-out set.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister removes a client. Safe to call for an already-removed client.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Broadcast queues a raw message for all clients. Never blocks; when the
// queue is full the message is dropped.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warnf("Event broadcast queue full, dropping message")
	}
}

// BroadcastJSON marshals v and broadcasts it.
func (h *Hub) BroadcastJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast message: %w", err)
	}
	h.Broadcast(payload)
	return nil
}
