package service

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"financeflow/internal/core"
)

// session is one authenticated user's in-memory working state. The
// transaction slice is held newest-first, mirroring the ledger file order.
type session struct {
	mu       sync.Mutex
	username string
	txns     []core.Transaction
	nextID   int64
	budget   core.Money

	expiresAt time.Time
}

// Sessions maps opaque bearer tokens to per-user working state. Tokens
// expire after the TTL; every successful lookup slides the deadline.
type Sessions struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]*session
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl: ttl,
		m:   make(map[string]*session),
	}
}

// newToken generates a 128-bit random token in hex form.
func newToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the platform is broken
		panic(err)
	}
	return hex.EncodeToString(b)
}

// Create registers a new session and returns its token.
func (s *Sessions) Create(sess *session) string {
	token := newToken()
	sess.expiresAt = time.Now().Add(s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[token] = sess
	return token
}

// Get returns the live session for token, sliding its expiry.
func (s *Sessions) Get(token string) (*session, bool) {
	s.mu.RLock()
	sess, ok := s.m[token]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Now().After(sess.expiresAt) {
		delete(s.m, token)
		return nil, false
	}
	sess.expiresAt = time.Now().Add(s.ttl)
	return sess, true
}

// Delete removes the session for token, reporting whether it existed.
func (s *Sessions) Delete(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[token]
	delete(s.m, token)
	return ok
}

// CleanExpired removes expired sessions and returns how many were dropped.
// Satisfies the cache manager's Cleaner interface.
func (s *Sessions) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for token, sess := range s.m {
		if now.After(sess.expiresAt) {
			delete(s.m, token)
			removed++
		}
	}
	return removed
}

// Size returns the number of live sessions.
func (s *Sessions) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
