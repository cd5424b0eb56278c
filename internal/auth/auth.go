// Package auth is the authentication collaborator: account creation and
// credential verification. The chat core never consults it directly; it
// only serves the signup/login endpoints.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bpaulsen/roomchat/internal/message"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrExists is returned when the username is already taken.
	ErrExists = errors.New("username already exists")

	// ErrInvalidCredentials is returned for an unknown user or bad password.
	ErrInvalidCredentials = errors.New("invalid username/password")
)

// User is a registered account.
type User struct {
	Username     string `json:"username"`
	Firstname    string `json:"firstname"`
	Lastname     string `json:"lastname"`
	PasswordHash string `json:"-"`
	CreatedOn    string `json:"createon"`
}

// UserStore is the persistence backend for accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	ByUsername(ctx context.Context, username string) (*User, error)
}

// Service implements signup and credential verification over a UserStore.
type Service struct {
	store UserStore
}

// NewService creates an auth Service.
func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// Signup creates an account with a bcrypt-hashed password. All fields are
// required; the username is trimmed before storage.
func (s *Service) Signup(ctx context.Context, username, firstname, lastname, password string) (*User, error) {
	username = strings.TrimSpace(username)
	firstname = strings.TrimSpace(firstname)
	lastname = strings.TrimSpace(lastname)
	if username == "" || firstname == "" || lastname == "" || password == "" {
		return nil, errors.New("all fields are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     username,
		Firstname:    firstname,
		Lastname:     lastname,
		PasswordHash: string(hash),
		CreatedOn:    message.FormatDate(time.Now()),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Verify checks a username/password pair and returns the account on
// success. Unknown users and wrong passwords are indistinguishable to the
// caller.
func (s *Service) Verify(ctx context.Context, username, password string) (*User, error) {
	u, err := s.store.ByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
