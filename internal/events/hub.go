// Package events pushes workflow events to connected dashboards over
// websockets. The feed is one-way: clients subscribe, the server
// broadcasts.
package events

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients map: ClientID -> Client
	clients map[string]*Client

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Outbound event frames
	broadcast chan []byte

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex
}

// Envelope is the frame sent to every subscriber
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	At      time.Time   `json:"at"`
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[string]*Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("🔔 Event subscriber connected: %s", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			// Only remove the exact connection that is unregistering
			if cur, ok := h.clients[client.ID]; ok && cur == client {
				delete(h.clients, client.ID)
				close(client.send)
				log.Printf("🔕 Event subscriber disconnected: %s", client.ID)
			}
			h.mu.Unlock()

		case frame := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- frame:
				default:
					// Buffer full or client dead; drop the frame for
					// this subscriber rather than block the hub
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish broadcasts a workflow event to all subscribers. Satisfies
// the workflow service's Publisher interface.
func (h *Hub) Publish(event string, payload interface{}) {
	frame, err := json.Marshal(Envelope{Type: event, Payload: payload, At: time.Now()})
	if err != nil {
		log.Printf("Error marshaling event %s: %v", event, err)
		return
	}

	select {
	case h.broadcast <- frame:
	default:
		log.Printf("⚠️  Event feed backlogged, dropping %s", event)
	}
}
