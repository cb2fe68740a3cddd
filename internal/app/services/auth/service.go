// Package auth registers renters and owners and turns bearer tokens into callers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"rentwheels/internal/domain/access"
	domainauth "rentwheels/internal/domain/auth"
	domainuser "rentwheels/internal/domain/user"
)

const (
	minPasswordLength = 8
	defaultSessionTTL = 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = fmt.Errorf("auth: password must be at least %d characters", minPasswordLength)
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

// Service owns accounts and their sessions. Every dependency is required.
type Service struct {
	Users      domainuser.Repository
	Sessions   domainauth.SessionStore
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	SessionTTL time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

type RegisterParams struct {
	Email    string
	Name     string
	Phone    string
	Password string
	// AsOwner also grants the owner role so the user can list cars.
	AsOwner bool
}

// ProvisionParams create a user with explicit roles, e.g. from fixtures.
type ProvisionParams struct {
	Email    string
	Name     string
	Phone    string
	Password string
	Roles    []domainuser.Role
}

type LoginParams struct {
	Email    string
	Password string
}

// AuthResult is returned by register and login. Token is sent back as a bearer token.
type AuthResult struct {
	User  *domainuser.User
	Token string
}

type ResolveResult struct {
	User    *domainuser.User
	Session *domainauth.Session
}

// Actor is the caller identity handlers authorize against. Roles come from the
// stored user so role changes apply to live sessions.
func (r ResolveResult) Actor() access.Actor {
	if r.User == nil {
		return access.Actor{}
	}
	return access.Actor{ID: string(r.User.ID), Roles: slices.Clone(r.User.Roles)}
}

// Register creates a renter account, optionally an owner too, and signs it in.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	roles := []domainuser.Role{domainuser.RoleUser}
	if params.AsOwner {
		roles = append(roles, domainuser.RoleOwner)
	}
	user, err := s.Provision(ctx, ProvisionParams{
		Email:    params.Email,
		Name:     params.Name,
		Phone:    params.Phone,
		Password: params.Password,
		Roles:    roles,
	})
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, user, "user registered")
}

// Provision stores a new user without opening a session.
func (s *Service) Provision(ctx context.Context, params ProvisionParams) (*domainuser.User, error) {
	account := domainuser.CreateParams{
		ID:    domainuser.ID(uuid.NewString()),
		Email: domainuser.NormalizeEmail(params.Email),
		Name:  strings.TrimSpace(params.Name),
		Phone: strings.TrimSpace(params.Phone),
		Roles: params.Roles,
	}
	switch {
	case account.Email == "":
		return nil, domainuser.ErrEmailRequired
	case account.Name == "":
		return nil, domainuser.ErrNameRequired
	case utf8.RuneCountInString(params.Password) < minPasswordLength:
		return nil, ErrPasswordTooShort
	}

	_, err := s.Users.ByEmail(ctx, account.Email)
	switch {
	case err == nil:
		return nil, domainuser.ErrEmailAlreadyUsed
	case !errors.Is(err, domainuser.ErrNotFound):
		return nil, fmt.Errorf("look up %s: %w", account.Email, err)
	}

	if account.PasswordHash, err = s.Passwords.Hash(params.Password); err != nil {
		return nil, err
	}
	account.CreatedAt = s.now()
	user, err := domainuser.NewUser(account)
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login never reveals whether the email or the password was wrong.
func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.Users.ByEmail(ctx, email)
	if errors.Is(err, domainuser.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if s.Passwords.Compare(user.PasswordHash, params.Password) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.signIn(ctx, user, "user authenticated")
}

// Logout ends the session. Blank and unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	key := domainauth.Token(strings.TrimSpace(token))
	if key == "" {
		return nil
	}
	return s.Sessions.Delete(ctx, key)
}

// ResolveToken maps a bearer token to its live session and current user.
// Sessions whose user is gone are revoked.
func (s *Service) ResolveToken(ctx context.Context, token string) (*ResolveResult, error) {
	key := domainauth.Token(strings.TrimSpace(token))
	if key == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		_ = s.Sessions.Delete(ctx, key)
		return nil, domainauth.ErrSessionNotFound
	}
	user, err := s.Users.ByID(ctx, session.UserID)
	if errors.Is(err, domainuser.ErrNotFound) {
		_ = s.Sessions.Delete(ctx, key)
		return nil, domainauth.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ResolveResult{User: user, Session: session}, nil
}

func (s *Service) signIn(ctx context.Context, user *domainuser.User, event string) (*AuthResult, error) {
	raw, err := s.Tokens.NewToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	session, err := domainauth.NewSession(domainauth.Token(raw), user, ttl, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.InfoContext(ctx, event, "user_id", user.ID, "roles", user.Roles, "expires_at", session.ExpiresAt)
	}
	return &AuthResult{User: user, Token: string(session.Token)}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
