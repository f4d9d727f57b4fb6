// internal/realtime/hub.go
package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

type Client struct {
	ID     string
	UserID uuid.UUID
	Send   chan []byte
}

// Hub tracks the websocket clients connected to this instance.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// RegisterClient reports false once the hub has stopped.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendToUser delivers payload to every connection of userID. Slow clients
// with a full buffer miss the message instead of blocking the hub.
func (h *Hub) SendToUser(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.UserID == userID {
			select {
			case client.Send <- payload:
			default:
			}
		}
	}
}

// Connected returns the number of live connections for userID.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, client := range h.clients {
		if client.UserID == userID {
			n++
		}
	}
	return n
}

// Run serves register/unregister until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.log.Debug("websocket client registered", "client", client.ID, "user_id", client.UserID)

		case client := <-h.unregister:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(old.Send)
				h.log.Debug("websocket client unregistered", "client", client.ID)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return nil
		}
	}
}
