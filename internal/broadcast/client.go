package broadcast

import (
	"time"

	"taskBoard/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// client wraps one subscriber connection. Events are queued on the send
// channel by the hub and drained by a single writer goroutine, which is
// what preserves per-connection delivery order.
type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings. It exits on the first write error or when the hub
// closes the send channel.
func (c *client) writePump(writeTimeout, pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("Broadcast: write failed, dropping client",
					zap.String("client_id", c.id.String()),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards anything the subscriber sends (the server is the
// sole publisher) and surfaces disconnects to the hub. When the hub has
// already stopped nobody drains unregister, so the deferred send also
// watches done instead of parking forever.
func (c *client) readPump(h *Hub, pingInterval time.Duration) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	pongWait := pingInterval * 2
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
