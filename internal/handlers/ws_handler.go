package handlers

import (
	"net/http"

	"taskBoard/internal/logger"

	"github.com/gorilla/websocket"
)

// BoardHub is the slice of the broadcaster the HTTP layer needs.
type BoardHub interface {
	ServeConn(conn *websocket.Conn)
	ClientCount() int
}

type WSHandler struct {
	hub      BoardHub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub BoardHub) WSHandler {
	return WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// cross-origin policy is enforced by the CORS middleware
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe upgrades the request and hands the connection to the hub.
// It blocks until the subscriber disconnects.
func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN: event stream subscribe")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		logger.Warn("HTTP: websocket upgrade failed")
		return
	}

	h.hub.ServeConn(conn)
}
