package message

import "sync"

// Store is the interface for message persistence backends. A message must
// be durably appended before it is broadcast to a room, so Append reports
// failure explicitly.
type Store interface {
	Append(msg *GroupMessage) error
	Recent(room string, n int) ([]*GroupMessage, error)
	Count(room string) int
}

// MemoryStore keeps recent messages per room in memory. It is the default
// backend when no Redis is configured, and the one tests use.
type MemoryStore struct {
	mu      sync.RWMutex
	rooms   map[string][]*GroupMessage
	maxSize int
}

// NewMemoryStore creates a store that retains up to maxSize messages per room.
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		rooms:   make(map[string][]*GroupMessage),
		maxSize: maxSize,
	}
}

// Append adds a message to its room's history, evicting the oldest entries
// beyond maxSize.
func (s *MemoryStore) Append(msg *GroupMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := append(s.rooms[msg.Room], msg)
	if len(msgs) > s.maxSize {
		msgs = msgs[len(msgs)-s.maxSize:]
	}
	s.rooms[msg.Room] = msgs
	return nil
}

// Recent returns up to the last n messages for a room in ascending
// chronological order.
func (s *MemoryStore) Recent(room string, n int) ([]*GroupMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.rooms[room]
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	result := make([]*GroupMessage, len(msgs))
	copy(result, msgs)
	return result, nil
}

// Count returns the number of stored messages for a room.
func (s *MemoryStore) Count(room string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[room])
}
