package server

import (
	"log/slog"
	"sync"

	"crypto_dash/internal/infra"
)

// Hub tracks the connected browsers and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	metrics *infra.Metrics
	logger  *slog.Logger
}

// NewHub creates an empty hub. metrics may be nil.
func NewHub(metrics *infra.Metrics) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		metrics: metrics,
		logger:  slog.Default().With("module", "hub"),
	}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID()] = c
	n := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.IncrementConnections()
	}
	h.logger.Info("WebSocket client connected", slog.String("client_id", c.ID()), slog.Int("clients", n))
}

// Unregister removes a client and closes it.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.Close()
	if h.metrics != nil {
		h.metrics.DecrementConnections()
	}
	h.logger.Info("WebSocket client disconnected", slog.String("client_id", id))
}

// Broadcast queues msg on every client and returns how many accepted it.
func (h *Hub) Broadcast(msg []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, c := range h.clients {
		if err := c.Send(msg); err == nil {
			sent++
		}
	}
	return sent
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.Unregister(id)
	}
}
