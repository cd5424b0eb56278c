package ratelimit

import (
	"sync"
	"time"
)

// IPLimiter allows up to max requests per IP within a fixed window.
// Windows reset lazily on the next request after expiry.
type IPLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	max     int
	window  time.Duration
}

type bucket struct {
	count int
	start time.Time
}

// NewIPLimiter creates an IPLimiter allowing max requests per window.
func NewIPLimiter(max int, window time.Duration) *IPLimiter {
	return &IPLimiter{
		buckets: make(map[string]*bucket),
		max:     max,
		window:  window,
	}
}

// Allow reports whether the IP may proceed and records the request if so.
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b := l.buckets[ip]
	if b == nil || now.Sub(b.start) >= l.window {
		l.buckets[ip] = &bucket{count: 1, start: now}
		return true
	}
	if b.count >= l.max {
		return false
	}
	b.count++
	return true
}

// Prune drops buckets whose window has expired. Callers may run this
// periodically to bound memory on long-lived servers.
func (l *IPLimiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.window)
	for ip, b := range l.buckets {
		if b.start.Before(cutoff) {
			delete(l.buckets, ip)
		}
	}
}
