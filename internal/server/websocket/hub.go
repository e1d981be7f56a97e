// Package websocket pushes session events to WebSocket clients. A client
// subscribes to one session, or to all sessions with an empty session id.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	sendBuffer     = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxInboundSize = 512
)

// Message is the JSON frame sent to clients.
type Message struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Hub owns the set of connected clients. All changes to the set go through
// Run.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	logger     *zerolog.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan Message, sendBuffer),
		logger:     logger,
	}
}

// Run serves the hub until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info().Msg("WebSocket hub shut down")
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case m := <-h.broadcast:
			h.deliver(m)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info().Str("client_id", c.id).Str("session_id", c.session).Int("total_clients", n).Msg("WebSocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		h.dropLocked(c)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Info().Str("client_id", c.id).Int("total_clients", n).Msg("WebSocket client disconnected")
	}
}

// deliver queues m for every interested client. A client whose buffer is
// full is dropped.
func (h *Hub) deliver(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(m) {
			continue
		}
		select {
		case c.send <- m:
		default:
			h.dropLocked(c)
			h.logger.Warn().Str("client_id", c.id).Msg("WebSocket client too slow, dropped")
		}
	}
}

func (h *Hub) dropLocked(c *Client) {
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
}

// Register adds a client.
func (h *Hub) Register(c *Client) { h.register <- c }

// Unregister removes a client. Unknown clients are ignored.
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// Broadcast queues a message without blocking; it is dropped when the queue
// is full.
func (h *Hub) Broadcast(m Message) {
	select {
	case h.broadcast <- m:
	default:
		h.logger.Warn().Str("type", m.Type).Msg("WebSocket broadcast queue full, message dropped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one WebSocket connection.
type Client struct {
	id      string
	session string
	hub     *Hub
	conn    *websocket.Conn
	send    chan Message
}

// NewClient creates a client. An empty session receives the messages of
// every session.
func NewClient(id, session string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{id: id, session: session, hub: hub, conn: conn, send: make(chan Message, sendBuffer)}
}

func (c *Client) wants(m Message) bool {
	return c.session == "" || m.SessionID == "" || c.session == m.SessionID
}

// ReadPump keeps the read deadline alive with pongs and unregisters the
// client when the connection ends. Inbound messages are discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	c.conn.SetReadLimit(maxInboundSize)
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error().Err(err).Str("client_id", c.id).Msg("WebSocket read error")
			}
			return
		}
	}
}

// WritePump writes queued messages and periodic pings until the hub closes
// the send channel or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case m, ok := <-c.send:
			if !ok {
				_ = write(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(m)
			if err != nil {
				c.hub.logger.Error().Err(err).Str("type", m.Type).Msg("Failed to marshal WebSocket message")
				continue
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
