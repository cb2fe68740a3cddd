package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	domainauth "rentwheels/internal/domain/auth"
)

// SessionStore holds bearer sessions for a single process. Expired sessions
// are dropped on lookup, the same way the redis store lets keys lapse.
type SessionStore struct {
	Now func() time.Time

	mu       sync.Mutex
	sessions map[domainauth.Token]domainauth.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[domainauth.Token]domainauth.Session)}
}

func (s *SessionStore) Save(_ context.Context, session *domainauth.Session) error {
	if session == nil || session.Token == "" {
		return domainauth.ErrTokenRequired
	}
	stored := *session
	stored.Roles = slices.Clone(session.Roles)
	s.mu.Lock()
	s.sessions[session.Token] = stored
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Get(_ context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	if session.Expired(s.now()) {
		delete(s.sessions, token)
		return nil, domainauth.ErrSessionNotFound
	}
	session.Roles = slices.Clone(session.Roles)
	return &session, nil
}

// Delete is a no-op for unknown tokens.
func (s *SessionStore) Delete(_ context.Context, token domainauth.Token) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

var _ domainauth.SessionStore = (*SessionStore)(nil)
