package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/coder/websocket"

	"github.com/getmockd/kbase/pkg/entity"
	"github.com/getmockd/kbase/pkg/logging"
)

// DefaultWriteTimeout bounds a single write to a client.
const DefaultWriteTimeout = 5 * time.Second

// Hub fans the state out to WebSocket clients.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	latest      []byte
	closed      bool

	writeTimeout time.Duration
	log          *slog.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		connections:  make(map[string]*Connection),
		writeTimeout: DefaultWriteTimeout,
		log:          logging.Nop(),
	}
}

// SetLogger sets the operational logger for the hub.
func (h *Hub) SetLogger(log *slog.Logger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if log != nil {
		h.log = log
	} else {
		h.log = logging.Nop()
	}
}

// Publish implements broadcast.Publisher. The state is kept as the latest
// value and queued for every connected client.
func (h *Hub) Publish(_ context.Context, state entity.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.latest = data
	for _, c := range h.connections {
		c.offer(data)
	}
	return nil
}

// ServeHTTP upgrades the request and streams states until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	wsConn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true,
		CompressionMode:    ws.CompressionDisabled,
	})
	if err != nil {
		h.logger().Debug("websocket accept failed", "error", err)
		return
	}

	conn := newConnection(wsConn, r)
	if !h.add(conn) {
		_ = conn.Close(ws.StatusGoingAway, "shutting down")
		return
	}
	h.logger().Debug("state subscriber connected", "id", conn.ID(), "remoteAddr", conn.remoteAddr)

	err = conn.writeLoop(h.writeTimeout)
	h.remove(conn.ID())
	_ = conn.Close(ws.StatusNormalClosure, "")

	if err != nil && !errors.Is(err, context.Canceled) {
		h.logger().Debug("state subscriber write failed", "id", conn.ID(), "error", err)
	}
	h.logger().Debug("state subscriber disconnected", "id", conn.ID(), "sent", conn.MessagesSent())
}

func (h *Hub) add(c *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.connections[c.ID()] = c
	if h.latest != nil {
		c.offer(h.latest)
	}
	return true
}

func (h *Hub) remove(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, connID)
}

func (h *Hub) logger() *slog.Logger {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.log
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Connection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.connections = make(map[string]*Connection)
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close(ws.StatusGoingAway, "shutting down")
	}
}
