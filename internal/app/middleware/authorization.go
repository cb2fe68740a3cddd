package middleware

import (
	"context"

	"rentwheels/internal/app/commands"
	"rentwheels/internal/app/queries"
	"rentwheels/internal/domain/access"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

type AuthorizerFunc func(ctx context.Context, message any) error

func (f AuthorizerFunc) Authorize(ctx context.Context, message any) error {
	return f(ctx, message)
}

// Acting is implemented by messages issued on behalf of a caller.
type Acting interface {
	Caller() access.Actor
}

// RequireCaller rejects acting messages whose caller is anonymous.
// Ownership rules need the loaded resource and are checked by the handlers.
var RequireCaller = AuthorizerFunc(func(_ context.Context, message any) error {
	if m, ok := message.(Acting); ok && !m.Caller().Authenticated() {
		return access.ErrUnauthenticated
	}
	return nil
})

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queries.BusFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
