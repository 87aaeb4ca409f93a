package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// envelope is the wire frame for every outbound event.
type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub maintains the set of active sessions and their room subscriptions.
// It implements game.Emitter, so the engine never touches a connection
// directly.
type Hub struct {
	sessions   map[string]*Client            // sessionID -> Client
	rooms      map[string]map[string]*Client // roomID -> sessionID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	mirror *Mirror

	// OnDisconnect is called after a session is removed so queue tickets
	// owned by that session can be dropped.
	OnDisconnect func(playerID, sessionID string)
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetMirror attaches a cross-process broadcast mirror. Optional.
func (h *Hub) SetMirror(m *Mirror) {
	h.mirror = m
}

// Run processes session registration until the process exits. Call it once
// in a goroutine at startup.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.sessions[client.sessionID] = client
			h.mu.Unlock()
			log.Printf("[WS] Session %s connected", client.sessionID)

		case client := <-h.unregister:
			h.mu.Lock()
			playerID := client.playerID
			if cur, ok := h.sessions[client.sessionID]; ok && cur == client {
				delete(h.sessions, client.sessionID)
				for roomID := range client.joined {
					if room, exists := h.rooms[roomID]; exists {
						delete(room, client.sessionID)
						if len(room) == 0 {
							delete(h.rooms, roomID)
						}
					}
				}
				select {
				case <-client.send:
				default:
					close(client.send)
				}
				log.Printf("[WS] Session %s disconnected", client.sessionID)
			}
			h.mu.Unlock()

			if playerID != "" && h.OnDisconnect != nil {
				h.OnDisconnect(playerID, client.sessionID)
			}
		}
	}
}

// subscribe adds the session to a room's broadcast set. Idempotent.
func (h *Hub) subscribe(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.rooms[roomID]; !exists {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.sessionID] = client
	client.joined[roomID] = struct{}{}
}

// ToSession sends an event to a single session.
func (h *Hub) ToSession(sessionID, event string, payload interface{}) {
	data, err := json.Marshal(envelope{Type: event, Data: payload})
	if err != nil {
		log.Printf("[WS] Error marshaling %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.sessions[sessionID]
	if !exists {
		log.Printf("[WS] ToSession no client for session %s", sessionID)
		return
	}
	select {
	case client.send <- data:
	default:
		log.Printf("[WS] ToSession dropped %s for session %s (buffer full)", event, sessionID)
	}
}

// ToRoom sends an event to every session subscribed to the room, and
// mirrors it to peer processes when a mirror is attached.
func (h *Hub) ToRoom(roomID, event string, payload interface{}) {
	data, err := json.Marshal(envelope{Type: event, Data: payload})
	if err != nil {
		log.Printf("[WS] Error marshaling %s event: %v", event, err)
		return
	}

	h.deliverRoom(roomID, event, data)

	if h.mirror != nil {
		h.mirror.Publish(roomID, data)
	}
}

// deliverRoom fans a pre-marshaled frame out to local subscribers only.
func (h *Hub) deliverRoom(roomID, event string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, exists := h.rooms[roomID]
	if !exists {
		return
	}
	for _, client := range room {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] ToRoom dropped %s for session %s in room %s (buffer full)", event, client.sessionID, roomID)
		}
	}
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
