package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/bpaulsen/roomchat/internal/message"
	"github.com/bpaulsen/roomchat/internal/metrics"
	"github.com/bpaulsen/roomchat/internal/room"
	"nhooyr.io/websocket"
)

// historyLimit is the number of recent messages sent on room join.
const historyLimit = 50

// Handler upgrades HTTP connections to WebSockets and runs the per-client
// event loop. All membership changes flow through handleJoinRoom and
// unbind; nothing else touches the registry, which is what keeps a
// session's view and the registry's view of its binding consistent.
type Handler struct {
	hub      *Hub
	registry *room.Registry
	messages message.Store
}

// NewHandler creates a WebSocket Handler over the given hub, registry and
// message store.
func NewHandler(hub *Hub, registry *room.Registry, messages message.Store) *Handler {
	return &Handler{
		hub:      hub,
		registry: registry,
		messages: messages,
	}
}

// ServeHTTP upgrades the connection and processes inbound events one at a
// time in arrival order until the client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow all origins in dev; tighten in production.
	})
	if err != nil {
		log.Printf("ws: accept error: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	client := &Client{
		conn:    conn,
		session: &Session{},
	}

	connCtx := h.hub.ConnMgr().Add(client)
	h.readLoop(r.Context(), connCtx, client)

	h.hub.ConnMgr().Remove(client)
	h.unbind(client, "disconnected.")
}

// readLoop reads envelopes until the connection closes or the connection
// manager cancels connCtx.
func (h *Handler) readLoop(ctx context.Context, connCtx context.Context, client *Client) {
	for {
		select {
		case <-connCtx.Done():
			return
		default:
		}

		_, data, err := client.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancelled.
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		switch env.Type {
		case "joinRoom":
			var payload JoinRoomPayload
			if err := json.Unmarshal(env.Payload, &payload); err != nil {
				continue
			}
			h.handleJoinRoom(client, payload)

		case "leaveRoom":
			h.unbind(client, "left the room.")

		case "typing":
			if roomName, username, ok := client.session.Binding(); ok {
				h.hub.SendTyping(roomName, client, username)
			}

		case "stopTyping":
			if roomName, _, ok := client.session.Binding(); ok {
				h.hub.SendStopTyping(roomName, client)
			}

		case "groupMessage":
			var payload GroupMessagePayload
			if err := json.Unmarshal(env.Payload, &payload); err != nil {
				continue
			}
			h.handleGroupMessage(client, payload.Message)
		}
	}
}

// handleJoinRoom binds the session to a room. A bound session is unbound
// from its previous room first, with the usual members update and "left"
// notice to that room. Unknown rooms and missing fields are silent no-ops.
func (h *Handler) handleJoinRoom(client *Client, payload JoinRoomPayload) {
	username := strings.TrimSpace(payload.Username)
	roomName := strings.TrimSpace(payload.Room)
	if username == "" || roomName == "" {
		return
	}
	if !h.registry.Valid(roomName) {
		return
	}

	h.unbind(client, "left the room.")

	client.session.Bind(roomName, username)
	h.hub.JoinRoom(client, roomName)

	members, ok := h.registry.Join(roomName, username)
	if ok {
		h.hub.SendMembers(roomName, members)
	}
	h.hub.SendSystem(roomName, client, username+" joined the room.")

	h.sendHistory(client, roomName)
}

// unbind releases the session's current binding, if any, and informs the
// old room: a members update to the remaining occupants and a system notice
// whose text distinguishes an explicit leave from a disconnect. This is the
// single exit path shared by leaveRoom, room switches and connection close.
func (h *Handler) unbind(client *Client, notice string) {
	roomName, username, ok := client.session.Unbind()
	if !ok {
		return
	}

	h.hub.LeaveRoom(client, roomName)

	members, changed := h.registry.Leave(roomName, username)
	if changed {
		h.hub.SendMembers(roomName, members)
	}
	h.hub.SendSystem(roomName, client, username+" "+notice)
}

// handleGroupMessage validates, persists and then broadcasts a message.
// The broadcast happens only after a successful append, so a message seen
// by any occupant is always durable. Persistence failures are logged and
// otherwise invisible to the sender.
func (h *Handler) handleGroupMessage(client *Client, text string) {
	roomName, username, ok := client.session.Binding()
	if !ok {
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	msg := message.New(username, roomName, text)
	if err := h.messages.Append(msg); err != nil {
		metrics.PersistFailures.Inc()
		log.Printf("ws: failed to persist message from %s in %s: %v", username, roomName, err)
		return
	}
	metrics.MessagesPersisted.Inc()

	h.hub.SendGroupMessage(roomName, msg)
}

// sendHistory sends recent message history to a newly joined client. An
// empty history envelope is always sent so clients can rely on receiving
// it as part of the join handshake.
func (h *Handler) sendHistory(client *Client, roomName string) {
	recent, err := h.messages.Recent(roomName, historyLimit)
	if err != nil {
		log.Printf("ws: failed to load history for %s: %v", roomName, err)
		recent = nil
	}
	if recent == nil {
		recent = []*message.GroupMessage{}
	}
	h.hub.SendTo(client, "history", recent)
}
