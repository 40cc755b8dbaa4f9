// Package ws implements the mentor service's live alert feed: a hub that
// broadcasts every ingested alert to connected dashboard clients.
package ws

import (
	"encoding/json"
	"log"
)

// Hub maintains the set of active clients and broadcasts alert messages
// to them. Registration and broadcast are serialized through channels so
// no client map locking is needed in handlers.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	// done closes when Run returns so senders never block on a hub that
	// is no longer draining its channels.
	done chan struct{}
}

// NewHub creates a hub; call Run in a goroutine before registering clients.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until the stop channel closes.
func (h *Hub) Run(stop <-chan struct{}) {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("WebSocket client connected (%d active)", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("WebSocket client disconnected (%d active)", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow or gone; drop it rather than block the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}

		case <-stop:
			close(h.done)
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			log.Println("WebSocket hub stopped")
			return
		}
	}
}

// Register adds a client to the hub. A no-op once the hub has stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// BroadcastAlert sends an alert to all connected clients wrapped in a
// typed envelope. Dropped if the hub has stopped; ingestion never waits
// on the feed.
func (h *Hub) BroadcastAlert(alert interface{}) {
	message, err := json.Marshal(map[string]interface{}{
		"type":    "alert",
		"payload": alert,
	})
	if err != nil {
		log.Printf("Error marshalling alert for broadcast: %v", err)
		return
	}
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}
