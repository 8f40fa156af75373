package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"taskBoard/internal/logger"
	"taskBoard/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans committed change events out to every connected client.
// Delivery is best-effort and at-most-once: a client connected at publish
// time gets the event once, a disconnected client gets nothing, and a
// client too slow to drain its queue is dropped. Events reach each
// client's queue in publish order, which gives the per-connection
// ordering guarantee.
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	publish    chan models.Event
	done       chan struct{}
	mu         sync.RWMutex

	sendBuffer   int
	writeTimeout time.Duration
	pingInterval time.Duration
}

func NewHub(sendBuffer int, writeTimeout, pingInterval time.Duration) *Hub {
	return &Hub{
		clients:      make(map[*client]struct{}),
		register:     make(chan *client),
		unregister:   make(chan *client),
		publish:      make(chan models.Event, 256),
		done:         make(chan struct{}),
		sendBuffer:   sendBuffer,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
	}
}

// Run is the hub's main loop. Registration, deregistration and fan-out
// all serialize here.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Broadcast: hub shutting down")
			h.closeAllClients()
			close(h.done)
			return
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case event := <-h.publish:
			h.handlePublish(event)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Publish queues an event for fan-out. It never blocks the caller: the
// originating mutation has already committed, so under extreme backlog
// the event is dropped rather than the request held hostage.
func (h *Hub) Publish(event models.Event) {
	select {
	case h.publish <- event:
	default:
		logger.Error("Broadcast: publish queue full, event dropped", nil,
			zap.String("kind", string(event.Kind)))
	}
}

// ServeConn registers an upgraded connection and blocks until the
// subscriber disconnects.
func (h *Hub) ServeConn(conn *websocket.Conn) {
	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
	}

	h.register <- c
	go c.writePump(h.writeTimeout, h.pingInterval)
	c.readPump(h, h.pingInterval)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleRegister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	logger.Info("Broadcast: client registered",
		zap.String("client_id", c.id.String()),
		zap.Int("clients", len(h.clients)))
}

func (h *Hub) handleUnregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		logger.Info("Broadcast: client unregistered",
			zap.String("client_id", c.id.String()),
			zap.Int("clients", len(h.clients)))
	}
}

func (h *Hub) handlePublish(event models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Broadcast: failed to marshal event", err,
			zap.String("kind", string(event.Kind)))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// queue full: the client is too far behind, cut it loose
			logger.Warn("Broadcast: send queue full, dropping client",
				zap.String("client_id", c.id.String()))
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
	}
	h.clients = make(map[*client]struct{})
}
