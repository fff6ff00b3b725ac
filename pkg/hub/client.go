package hub

import (
	"time"

	"github.com/gofiber/contrib/websocket"

	customlog "github.com/sharminesan/tb-backend/pkg/log"
)

const (
	// writeWait bounds a single write to the peer.
	writeWait = 10 * time.Second
	// pongWait is how long we tolerate silence from the peer.
	pongWait = 60 * time.Second
	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// sendBuffer is the per-client outbound queue; a client further behind
	// than this is dropped by the hub.
	sendBuffer = 64
)

// Client is one websocket connection attached to the hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	logger customlog.Logger
	send   chan []byte
}

// NewClient wraps an upgraded websocket connection.
func NewClient(h *Hub, conn *websocket.Conn, logger customlog.Logger) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBuffer),
	}
}

// WritePump drains the send queue to the peer and keeps the connection
// alive with pings. Runs as its own goroutine; exits when the hub closes
// the send channel or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump consumes inbound messages until the connection drops, passing
// each to onMessage (may be nil for broadcast-only endpoints). Blocks, so
// call it from the connection handler goroutine; unregisters the client on
// return.
func (c *Client) ReadPump(onMessage func([]byte)) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warnf("Websocket read error: %v", err)
			}
			return
		}
		if onMessage != nil {
			onMessage(message)
		}
	}
}
