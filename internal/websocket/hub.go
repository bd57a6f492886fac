// Package websocket implements the WebSocket half of the HTTP facade: one
// subscription per connection, scoped to a single mailbox address, pushing
// EmailArrived/EmailDeleted frames straight from the event bus.
package websocket

import (
	"log/slog"
	"sync"
)

// Hub tracks live connections. It owns no delivery logic itself — each
// Client subscribes directly to the bus for its own address — it exists so
// the server can close every connection on shutdown, and Count reports how
// many are live (no health check reads it).
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]bool
	logger  *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		logger:  logger,
	}
}

// Register adds a client to the registry.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	if h.logger != nil {
		h.logger.Debug("websocket client registered", slog.String("address", client.address))
	}
}

// Unregister removes a client from the registry.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
	if h.logger != nil {
		h.logger.Debug("websocket client unregistered", slog.String("address", client.address))
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown closes every live connection's closeCh, causing each
// client's write pump to exit and close the underlying socket.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.closeCh)
	}
	h.clients = make(map[*Client]bool)
}
