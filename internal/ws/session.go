package ws

import "sync"

// Session is the server-side state for one live connection: its current
// identity and room binding. A session is either unbound or bound to
// exactly one room; rebinding always releases the previous binding first.
//
// The identity is re-specified by every join request. It is not validated
// against the identity used at login; a connection that rejoins under a
// different name is simply treated as that name from then on.
type Session struct {
	mu       sync.Mutex
	room     string
	username string
}

// Bind sets the session's room and identity. The caller must have released
// any previous binding via Unbind.
func (s *Session) Bind(room, username string) {
	s.mu.Lock()
	s.room = room
	s.username = username
	s.mu.Unlock()
}

// Unbind clears the binding and returns what it was. ok is false if the
// session was already unbound.
func (s *Session) Unbind() (room, username string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room == "" {
		return "", "", false
	}
	room, username = s.room, s.username
	s.room, s.username = "", ""
	return room, username, true
}

// Binding returns the current room and identity. ok is false if unbound.
func (s *Session) Binding() (room, username string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room == "" {
		return "", "", false
	}
	return s.room, s.username, true
}
