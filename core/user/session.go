package user

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// SessionStore keeps the live sessions in memory. Expired sessions are dropped when read.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	nowFn    func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]Session), nowFn: time.Now}
}

func (s *SessionStore) Create(userID string, ttl time.Duration) Session {
	now := s.nowFn().UTC()
	sess := Session{ID: uuid.NewString(), UserID: userID, CreatedAt: now, ExpiresAt: now.Add(ttl)}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

func (s *SessionStore) Get(id string) (Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if sess.Expired(s.nowFn().UTC()) {
		s.Revoke(id)
		return Session{}, ErrSessionExpired
	}
	return sess, nil
}

// Extend pushes the expiry of a live session.
func (s *SessionStore) Extend(id string, ttl time.Duration) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn().UTC()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if sess.Expired(now) {
		delete(s.sessions, id)
		return Session{}, ErrSessionExpired
	}
	sess.ExpiresAt = now.Add(ttl)
	s.sessions[id] = sess
	return sess, nil
}

// Revoke reports whether the session existed.
func (s *SessionStore) Revoke(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// RevokeUser ends every session of `userID` and returns their ids.
func (s *SessionStore) RevokeUser(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			ids = append(ids, id)
			delete(s.sessions, id)
		}
	}
	return ids
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
