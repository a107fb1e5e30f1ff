// Package devotp keeps issued OTPs retrievable by email, used only when dev OTP mode is enabled (GET /dev/otp).
package devotp

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store holds plain OTP by email for dev-only retrieval. Not used in production.
type Store interface {
	// Put stores otp for email until expiresAt. Called when registration issues a code in dev mode.
	Put(ctx context.Context, email, otp string, expiresAt time.Time)
	// Get returns the otp for email if present and not expired. Returns ok false if missing or expired.
	Get(ctx context.Context, email string) (otp string, ok bool)
}

type entry struct {
	otp       string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev OTP store. now may be nil (time.Now is used).
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: now,
	}
}

func key(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Put stores otp for email until expiresAt, replacing any previous code.
func (s *MemoryStore) Put(ctx context.Context, email, otp string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key(email)] = entry{otp: otp, expiresAt: expiresAt}
}

// Get returns the otp for email if present and not expired.
func (s *MemoryStore) Get(ctx context.Context, email string) (string, bool) {
	k := key(email)
	s.mu.RLock()
	e, ok := s.m[k]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, k)
		s.mu.Unlock()
		return "", false
	}
	return e.otp, true
}
