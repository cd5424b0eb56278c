package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/bpaulsen/roomchat/internal/message"
	"nhooyr.io/websocket"
)

// Client represents a connected WebSocket user.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	session *Session
}

// Envelope is the JSON structure sent over the WebSocket in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomPayload is sent by the client to join (or switch to) a room.
type JoinRoomPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// GroupMessagePayload is sent by the client to post a message to its room.
type GroupMessagePayload struct {
	Message string `json:"message"`
}

// TypingPayload tells recipients who is typing.
type TypingPayload struct {
	Username string `json:"username"`
}

// Hub routes events to the correct audience within a room: the whole room,
// the room minus one connection, or a single connection. Which connections
// belong to which room is tracked here, decoupled from the identity-level
// occupant sets in the room registry.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	conns *ConnManager
}

// NewHub creates a new Hub with its own connection manager.
func NewHub(opts ...ConnManagerOption) *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		conns: NewConnManager(opts...),
	}
}

// ConnMgr returns the connection manager for this hub.
func (h *Hub) ConnMgr() *ConnManager {
	return h.conns
}

// JoinRoom places a client's connection in a room's audience.
func (h *Hub) JoinRoom(c *Client, room string) {
	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	h.mu.Unlock()
}

// LeaveRoom removes a client's connection from a room's audience. Empty
// audiences are dropped.
func (h *Hub) LeaveRoom(c *Client, room string) {
	h.mu.Lock()
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connections currently in a room.
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// SendMembers broadcasts the room's occupant list to every connection in
// the room, including whichever connection triggered the change.
func (h *Hub) SendMembers(room string, members []string) {
	data, err := encode("members", members)
	if err != nil {
		return
	}
	h.broadcast(room, nil, data)
}

// SendSystem broadcasts a system notice to every connection in the room
// except the one that triggered it. Notifying an actor of its own join or
// leave would be redundant.
func (h *Hub) SendSystem(room string, except *Client, text string) {
	data, err := encode("system", text)
	if err != nil {
		return
	}
	h.broadcast(room, except, data)
}

// SendTyping relays a typing signal to everyone in the room but the sender.
func (h *Hub) SendTyping(room string, sender *Client, username string) {
	data, err := encode("typing", TypingPayload{Username: username})
	if err != nil {
		return
	}
	h.broadcast(room, sender, data)
}

// SendStopTyping relays a stop-typing signal to everyone but the sender.
func (h *Hub) SendStopTyping(room string, sender *Client) {
	data, err := json.Marshal(Envelope{Type: "stopTyping"})
	if err != nil {
		return
	}
	h.broadcast(room, sender, data)
}

// SendGroupMessage broadcasts a persisted message to the whole room,
// sender included, so every occupant observes the same ordering.
func (h *Hub) SendGroupMessage(room string, msg *message.GroupMessage) {
	data, err := encode("groupMessage", msg)
	if err != nil {
		return
	}
	h.broadcast(room, nil, data)
}

// SendTo queues an envelope for a single connection.
func (h *Hub) SendTo(c *Client, typ string, payload any) {
	data, err := encode(typ, payload)
	if err != nil {
		return
	}
	h.conns.Send(c, data)
}

// broadcast delivers data to every connection in the room, optionally
// excluding one. The audience is copied so the lock is released before
// any send.
func (h *Hub) broadcast(room string, except *Client, data []byte) {
	h.mu.RLock()
	clients := h.rooms[room]
	targets := make([]*Client, 0, len(clients))
	for c := range clients {
		if c == except {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.conns.Send(c, data)
	}
}

// encode marshals a typed envelope for the wire.
func encode(typ string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: failed to marshal %s payload: %v", typ, err)
		return nil, err
	}
	env, err := json.Marshal(Envelope{Type: typ, Payload: data})
	if err != nil {
		log.Printf("ws: failed to marshal %s envelope: %v", typ, err)
		return nil, err
	}
	return env, nil
}
