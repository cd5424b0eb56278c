package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSignupAndVerify(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	u, err := svc.Signup(ctx, "alice", "Alice", "Adams", "s3cret")
	if err != nil {
		t.Fatalf("signup error: %v", err)
	}
	if u.Username != "alice" {
		t.Errorf("expected username 'alice', got %q", u.Username)
	}
	if u.PasswordHash == "s3cret" || u.PasswordHash == "" {
		t.Error("expected password to be hashed")
	}
	if _, err := time.Parse("01-02-2006 03:04 PM", u.CreatedOn); err != nil {
		t.Errorf("createon %q not in archive format: %v", u.CreatedOn, err)
	}

	got, err := svc.Verify(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if got.Firstname != "Alice" || got.Lastname != "Adams" {
		t.Errorf("unexpected account %+v", got)
	}
}

func TestSignupTrimsUsername(t *testing.T) {
	svc := NewService(NewMemoryStore())

	u, err := svc.Signup(context.Background(), "  bob  ", "Bob", "Brown", "pw")
	if err != nil {
		t.Fatalf("signup error: %v", err)
	}
	if u.Username != "bob" {
		t.Errorf("expected trimmed username, got %q", u.Username)
	}
}

func TestSignupDuplicate(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "alice", "Alice", "Adams", "pw"); err != nil {
		t.Fatalf("signup error: %v", err)
	}
	_, err := svc.Signup(ctx, "alice", "Other", "Person", "pw2")
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestSignupMissingFields(t *testing.T) {
	svc := NewService(NewMemoryStore())

	if _, err := svc.Signup(context.Background(), "", "A", "B", "pw"); err == nil {
		t.Error("expected error for missing username")
	}
	if _, err := svc.Signup(context.Background(), "u", "A", "B", ""); err == nil {
		t.Error("expected error for missing password")
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()
	svc.Signup(ctx, "alice", "Alice", "Adams", "right")

	if _, err := svc.Verify(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Verify(ctx, "nobody", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestGormStoreRoundTrip(t *testing.T) {
	store, err := OpenGormStore(":memory:")
	if err != nil {
		t.Fatalf("open store error: %v", err)
	}
	ctx := context.Background()

	u := &User{Username: "carol", Firstname: "Carol", Lastname: "Clark", PasswordHash: "hash", CreatedOn: "01-15-2026 09:30 AM"}
	if err := store.Create(ctx, u); err != nil {
		t.Fatalf("create error: %v", err)
	}

	got, err := store.ByUsername(ctx, "carol")
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if got.Firstname != "Carol" || got.CreatedOn != u.CreatedOn {
		t.Errorf("unexpected record %+v", got)
	}

	if err := store.Create(ctx, u); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists on duplicate, got %v", err)
	}

	if _, err := store.ByUsername(ctx, "nobody"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}
