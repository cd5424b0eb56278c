package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	l := NewIPLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("request over the limit should be denied")
	}
}

func TestAllowPerIP(t *testing.T) {
	l := NewIPLimiter(1, time.Minute)

	if !l.Allow("1.1.1.1") {
		t.Fatal("first IP should be allowed")
	}
	if !l.Allow("2.2.2.2") {
		t.Fatal("second IP has its own bucket")
	}
	if l.Allow("1.1.1.1") {
		t.Fatal("first IP over its limit should be denied")
	}
}

func TestWindowReset(t *testing.T) {
	l := NewIPLimiter(1, 20*time.Millisecond)

	if !l.Allow("1.2.3.4") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("second request in window should be denied")
	}

	time.Sleep(30 * time.Millisecond)
	if !l.Allow("1.2.3.4") {
		t.Fatal("request after window reset should be allowed")
	}
}

func TestPrune(t *testing.T) {
	l := NewIPLimiter(1, 10*time.Millisecond)
	l.Allow("1.2.3.4")
	l.Allow("5.6.7.8")

	time.Sleep(20 * time.Millisecond)
	l.Prune()

	l.mu.Lock()
	n := len(l.buckets)
	l.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected all buckets pruned, got %d", n)
	}
}
