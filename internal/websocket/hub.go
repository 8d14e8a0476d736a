// internal/websocket/hub.go
package websocket

import (
	"context"
	"log"
	"sync"

	wstypes "concierge-service/internal/domain/websocket"
	"concierge-service/internal/pkg/jwt"
)

// Hub fans conversation events out to each business's connected
// dashboards. One business can hold several connections (tabs, staff).
type Hub struct {
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	Register   chan *Client
	unregister chan *Client

	broadcast chan *BroadcastMessage

	jwtVerifier *jwt.Verifier
}

type BroadcastMessage struct {
	BusinessIDs []int64
	Message     wstypes.WSMessage
}

func NewHub(jwtVerifier *jwt.Verifier) *Hub {
	return &Hub{
		clients:     make(map[int64]map[*Client]bool),
		Register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *BroadcastMessage, 256),
		jwtVerifier: jwtVerifier,
	}
}

// AuthenticateClient validates the bearer token offered on connect.
func (h *Hub) AuthenticateClient(token string) (*ClientAuth, error) {
	claims, err := h.jwtVerifier.Verify(token)
	if err != nil {
		return nil, err
	}

	return &ClientAuth{
		BusinessID: claims.BusinessID,
		Roles:      claims.Roles,
	}, nil
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.businessID] == nil {
		h.clients[client.businessID] = make(map[*Client]bool)
	}
	h.clients[client.businessID][client] = true

	log.Printf("ws client connected: business=%d, total=%d",
		client.businessID, h.totalClients())
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.businessID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.businessID)
			}

			log.Printf("ws client disconnected: business=%d, total=%d",
				client.businessID, h.totalClients())
		}
	}
}

func (h *Hub) deliver(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, businessID := range msg.BusinessIDs {
		if clients, ok := h.clients[businessID]; ok {
			for client := range clients {
				client.SendMessage(msg.Message)
			}
		}
	}
}

// BroadcastToBusiness queues an event for every dashboard of a business.
// Non-blocking: if the hub's queue is saturated the event is dropped
// rather than stalling webhook processing.
func (h *Hub) BroadcastToBusiness(businessID int64, msg wstypes.WSMessage) {
	select {
	case h.broadcast <- &BroadcastMessage{BusinessIDs: []int64{businessID}, Message: msg}:
	default:
		log.Printf("ws broadcast queue full, dropping event for business=%d", businessID)
	}
}

// ConnectedClients reports how many connections a business holds.
func (h *Hub) ConnectedClients(businessID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.clients[businessID]; ok {
		return len(clients)
	}
	return 0
}

// TotalClients reports connections across all businesses.
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
}
