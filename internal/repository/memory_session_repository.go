package repository

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	token     string
	expiresAt time.Time
}

// MemorySessionStore is an in-process SessionStore for tests and for running
// without Redis. Sessions do not survive a restart.
type MemorySessionStore struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[string]memorySession
}

// NewMemorySessionStore builds a store. A nil clock means time.Now.
func NewMemorySessionStore(now func() time.Time) *MemorySessionStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionStore{now: now, sessions: make(map[string]memorySession)}
}

func (s *MemorySessionStore) Set(_ context.Context, userID, refreshToken string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[SessionKey(userID)] = memorySession{token: refreshToken, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, userID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.lookup(SessionKey(userID))
	return session.token, ok, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, SessionKey(userID))
	return nil
}

func (s *MemorySessionStore) CompareAndSwap(_ context.Context, userID, expected, next string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := SessionKey(userID)
	session, ok := s.lookup(key)
	if !ok || session.token != expected {
		return false, nil
	}
	s.sessions[key] = memorySession{token: next, expiresAt: s.now().Add(ttl)}
	return true, nil
}

// lookup drops expired entries. Callers hold mu.
func (s *MemorySessionStore) lookup(key string) (memorySession, bool) {
	session, ok := s.sessions[key]
	if !ok {
		return memorySession{}, false
	}
	if !s.now().Before(session.expiresAt) {
		delete(s.sessions, key)
		return memorySession{}, false
	}
	return session, true
}
