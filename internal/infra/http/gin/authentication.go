package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentwheels/internal/app/services/auth"
	"rentwheels/internal/domain/access"
	domainauth "rentwheels/internal/domain/auth"
	domainuser "rentwheels/internal/domain/user"
)

const principalContextKey = "rentwheels.principal"

// principal is the resolved caller of a request.
type principal struct {
	Actor access.Actor
	User  *domainuser.User
	Token string
}

// TokenResolver turns a bearer token into the session's user.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*auth.ResolveResult, error)
}

type AuthMiddleware struct {
	Service TokenResolver
	Logger  *slog.Logger
}

// Handle attaches the caller when a valid bearer token is sent. Requests
// without one pass through anonymously; handlers decide whether that is enough.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	resolved, err := m.Service.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, principal{
		Actor: resolved.Actor(),
		User:  resolved.User,
		Token: token,
	})
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

// actorOf returns the caller, or the zero Actor for anonymous requests. The
// command buses reject a zero Actor with access.ErrUnauthenticated.
func actorOf(c *gin.Context) access.Actor {
	p, _ := currentPrincipal(c)
	return p.Actor
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
