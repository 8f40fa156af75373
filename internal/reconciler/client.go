package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"taskBoard/internal/logger"
	"taskBoard/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client keeps a live local replica of the server's task collection. On
// connect it subscribes to the event stream, seeds itself with a full
// fetch, then applies incoming events one at a time in arrival order.
// There is no catch-up protocol: a reconnect starts over with a fresh
// seed.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	dialer  *websocket.Dialer

	mu    sync.RWMutex
	board *Board
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		dialer:  websocket.DefaultDialer,
		board:   NewBoard(),
	}
}

// Run connects, seeds and then applies events until the context is
// cancelled or the connection drops. The caller decides whether to call
// Run again; each call reseeds from scratch.
func (c *Client) Run(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := c.dialer.DialContext(ctx, c.wsURL(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dialing event stream (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dialing event stream: %w", err)
	}
	defer conn.Close()

	if err := c.seed(ctx); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading event stream: %w", err)
		}

		var event models.Event
		if err := json.Unmarshal(data, &event); err != nil {
			logger.Warn("Reconciler: malformed event skipped", zap.Error(err))
			continue
		}

		c.mu.Lock()
		applyErr := c.board.Apply(event)
		c.mu.Unlock()

		if applyErr != nil {
			logger.Warn("Reconciler: event not applied",
				zap.String("kind", string(event.Kind)),
				zap.Error(applyErr))
		}
	}
}

// seed replaces local state with the server's full task collection.
func (c *Client) seed(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tasks", nil)
	if err != nil {
		return fmt.Errorf("building seed request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("fetching initial state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching initial state: unexpected status %d", resp.StatusCode)
	}

	var tasks []*models.Task
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		return fmt.Errorf("decoding initial state: %w", err)
	}

	c.mu.Lock()
	c.board.Seed(tasks)
	c.mu.Unlock()

	logger.Info("Reconciler: seeded", zap.Int("tasks", len(tasks)))
	return nil
}

func (c *Client) Tasks() []models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.board.Tasks()
}

func (c *Client) Get(id uuid.UUID) (models.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.board.Get(id)
}

func (c *Client) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.board.Len()
}

func (c *Client) wsURL() string {
	url := c.baseURL + "/ws"
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	return "ws://" + strings.TrimPrefix(url, "http://")
}
