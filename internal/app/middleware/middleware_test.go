package middleware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rentwheels/internal/app/commands"
	"rentwheels/internal/app/middleware"
	"rentwheels/internal/app/outbox"
	"rentwheels/internal/app/uow"
	"rentwheels/internal/domain/access"
	"rentwheels/internal/domain/booking"
	"rentwheels/internal/domain/cars"
	domainuser "rentwheels/internal/domain/user"
	"rentwheels/internal/infra/storage/memory"
)

type pingCommand struct {
	key   string
	actor access.Actor
}

func (pingCommand) Key() string              { return "test.ping" }
func (c pingCommand) IdempotencyKey() string { return c.key }
func (pingCommand) ResultPrototype() any     { return new(pingResult) }
func (c pingCommand) Caller() access.Actor   { return c.actor }

type pingResult struct {
	Count int `json:"count"`
}

type fakeUnit struct {
	committed  bool
	rolledBack bool
}

func (*fakeUnit) Cars() cars.Repository        { return nil }
func (*fakeUnit) Bookings() booking.Repository { return nil }
func (*fakeUnit) Outbox() outbox.Outbox        { return nil }

func (u *fakeUnit) Commit(context.Context) error {
	u.committed = true
	return nil
}

func (u *fakeUnit) Rollback(context.Context) error {
	u.rolledBack = true
	return nil
}

type fakeFactory struct {
	units []*fakeUnit
}

func (f *fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	u := &fakeUnit{}
	f.units = append(f.units, u)
	return u, nil
}

var errConflict = errors.New("write conflict")

func TestTransactionRetriesTransientErrors(t *testing.T) {
	factory := &fakeFactory{}
	calls := 0
	bus := middleware.ChainCommands(
		commands.BusFunc(func(ctx context.Context, _ commands.Command) (any, error) {
			_, ok := uow.FromContext(ctx)
			require.True(t, ok)
			calls++
			if calls < 3 {
				return nil, errConflict
			}
			return pingResult{Count: calls}, nil
		}),
		middleware.Transaction(factory, middleware.TransactionOptions{
			Retryable:   func(err error) bool { return errors.Is(err, errConflict) },
			MaxAttempts: 3,
		}),
	)

	res, err := commands.Dispatch[pingCommand, pingResult](context.Background(), bus, pingCommand{})
	require.NoError(t, err)
	require.Equal(t, 3, res.Count)
	require.Len(t, factory.units, 3)
	require.True(t, factory.units[0].rolledBack)
	require.True(t, factory.units[1].rolledBack)
	require.True(t, factory.units[2].committed)
	require.False(t, factory.units[2].rolledBack)
}

func TestTransactionStopsOnPermanentErrors(t *testing.T) {
	factory := &fakeFactory{}
	boom := errors.New("boom")
	bus := middleware.Transaction(factory, middleware.TransactionOptions{
		Retryable:   func(err error) bool { return errors.Is(err, errConflict) },
		MaxAttempts: 5,
	})(commands.BusFunc(func(context.Context, commands.Command) (any, error) {
		return nil, boom
	}))

	_, err := bus.Dispatch(context.Background(), pingCommand{})
	require.ErrorIs(t, err, boom)
	require.Len(t, factory.units, 1)
	require.True(t, factory.units[0].rolledBack)
}

func TestIdempotencyReplaysOnlySuccess(t *testing.T) {
	store := memory.NewIdempotencyStore(time.Hour)
	calls := 0
	fail := true
	bus := middleware.Idempotency(store, nil)(commands.BusFunc(func(context.Context, commands.Command) (any, error) {
		calls++
		if fail {
			return nil, errConflict
		}
		return pingResult{Count: calls}, nil
	}))
	ctx := context.Background()

	_, err := bus.Dispatch(ctx, pingCommand{key: "k-1"})
	require.ErrorIs(t, err, errConflict)

	fail = false
	first, err := commands.Dispatch[pingCommand, pingResult](ctx, bus, pingCommand{key: "k-1"})
	require.NoError(t, err)
	require.Equal(t, 2, first.Count)

	replayed, err := commands.Dispatch[pingCommand, pingResult](ctx, bus, pingCommand{key: "k-1"})
	require.NoError(t, err)
	require.Equal(t, first, replayed)
	require.Equal(t, 2, calls)

	_, err = bus.Dispatch(ctx, pingCommand{})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRequireCaller(t *testing.T) {
	bus := middleware.Authorization(middleware.RequireCaller)(commands.BusFunc(func(context.Context, commands.Command) (any, error) {
		return pingResult{}, nil
	}))

	_, err := bus.Dispatch(context.Background(), pingCommand{})
	require.ErrorIs(t, err, access.ErrUnauthenticated)

	_, err = bus.Dispatch(context.Background(), pingCommand{actor: access.Actor{ID: "u-1", Roles: []domainuser.Role{domainuser.RoleUser}}})
	require.NoError(t, err)
}
