package devserver

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
)

type wsEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// wsClient wraps a socket connection with its user id and a write lock.
type wsClient struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	userID string
}

func (c *wsClient) send(event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("hub: marshal %s: %v", event, err)
		return
	}
	frame, err := json.Marshal(wsEnvelope{Event: event, Data: payload})
	if err != nil {
		log.Printf("hub: marshal frame: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		log.Printf("hub: write to %s: %v", c.userID, err)
	}
}

// hub tracks sockets per user and room membership per conversation.
type hub struct {
	mu    sync.RWMutex
	users map[string]map[*wsClient]bool // userID -> connections
	rooms map[string]map[*wsClient]bool // conversationID -> connections
}

func newHub() *hub {
	return &hub{
		users: make(map[string]map[*wsClient]bool),
		rooms: make(map[string]map[*wsClient]bool),
	}
}

func (h *hub) register(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[client.userID] == nil {
		h.users[client.userID] = make(map[*wsClient]bool)
	}
	h.users[client.userID][client] = true
	log.Printf("hub: user %s connected (%d sockets)", client.userID, len(h.users[client.userID]))
}

func (h *hub) unregister(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.users[client.userID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.users, client.userID)
		}
	}
	for roomID, conns := range h.rooms {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
	log.Printf("hub: user %s disconnected", client.userID)
}

func (h *hub) join(roomID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*wsClient]bool)
	}
	h.rooms[roomID][client] = true
}

func (h *hub) leave(roomID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// toUser sends an event to every socket of one user.
func (h *hub) toUser(id, event string, data interface{}) {
	h.mu.RLock()
	conns := make([]*wsClient, 0, len(h.users[id]))
	for c := range h.users[id] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.send(event, data)
	}
}

// toRoom sends an event to every socket joined to a conversation's room.
// The sender's own sockets are included; clients suppress their own echoes.
func (h *hub) toRoom(roomID, event string, data interface{}, exclude *wsClient) {
	h.mu.RLock()
	conns := make([]*wsClient, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		if c == exclude {
			continue
		}
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.send(event, data)
	}
}
