package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentwheels/internal/domain/user"
)

var (
	ErrTokenRequired   = errors.New("auth: token is required")
	ErrUserRequired    = errors.New("auth: user is required")
	ErrTTLInvalid      = errors.New("auth: ttl must be positive")
	ErrSessionNotFound = errors.New("auth: session not found")
)

type Token string

// Session binds an opaque bearer token to a user until it expires.
type Session struct {
	Token     Token       `json:"token"`
	UserID    user.ID     `json:"user_id"`
	Roles     []user.Role `json:"roles"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func NewSession(token Token, owner *user.User, ttl time.Duration, now time.Time) (*Session, error) {
	trimmed := Token(strings.TrimSpace(string(token)))
	if trimmed == "" {
		return nil, ErrTokenRequired
	}
	if owner == nil || owner.ID == "" {
		return nil, ErrUserRequired
	}
	if ttl <= 0 {
		return nil, ErrTTLInvalid
	}
	now = now.UTC()
	return &Session{
		Token:     trimmed,
		UserID:    owner.ID,
		Roles:     append([]user.Role(nil), owner.Roles...),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

func (s *Session) Expired(at time.Time) bool {
	return !s.ExpiresAt.After(at.UTC())
}

// TTL returns the remaining lifetime relative to at, never negative.
func (s *Session) TTL(at time.Time) time.Duration {
	left := s.ExpiresAt.Sub(at.UTC())
	if left < 0 {
		return 0
	}
	return left
}

type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, token Token) (*Session, error)
	Delete(ctx context.Context, token Token) error
}
