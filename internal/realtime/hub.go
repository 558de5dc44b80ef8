package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans portfolio snapshots out to websocket subscribers. Each client
// subscribes to exactly one portfolio.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]string
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]string)}
}

func (h *Hub) Subscribe(conn *websocket.Conn, portfolioID string) {
	h.mu.Lock()
	h.clients[conn] = portfolioID
	h.mu.Unlock()
}

func (h *Hub) Unsubscribe(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// Broadcast sends v to every client subscribed to the portfolio. Clients
// whose write fails are dropped.
func (h *Hub) Broadcast(portfolioID string, v any) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn, id := range h.clients {
		if id == portfolioID {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(v); err != nil {
			h.Unsubscribe(conn)
		}
	}
}
