// internal/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Message is the envelope every feed frame is wrapped in.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub fans feed messages out to every connected dashboard. It is owned by
// a single Run goroutine; everything else talks to it over channels.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *zap.SugaredLogger
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves the hub until ctx is done, then disconnects all clients.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for client := range h.clients {
			close(client.Send)
			delete(h.clients, client)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debugw("feed client registered", "remote", client.remote())

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Debugw("feed client unregistered", "remote", client.remote())
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.logger.Warnw("feed client too slow, removing", "remote", client.remote())
					close(client.Send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Register hands a new client to the hub. It returns false once the hub
// has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Publish queues a message for all clients. It never blocks: when the hub
// is backed up the message is dropped, so telemetry is never held up by
// dashboards.
func (h *Hub) Publish(kind string, payload any) {
	b, err := json.Marshal(Message{Type: kind, Payload: payload})
	if err != nil {
		h.logger.Errorw("marshalling feed message", "type", kind, "error", err)
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.logger.Debugw("feed backlog full, dropping message", "type", kind)
	}
}
