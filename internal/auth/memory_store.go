package auth

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory UserStore for tests and dev setups that
// don't want a database file.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*User
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User)}
}

// Create inserts a new account. Returns ErrExists if the username is taken.
func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return ErrExists
	}
	cp := *u
	s.users[u.Username] = &cp
	return nil
}

// ByUsername looks up an account by username.
func (s *MemoryStore) ByUsername(_ context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	cp := *u
	return &cp, nil
}
