package uow

import (
	"context"

	"rentwheels/internal/app/outbox"
	"rentwheels/internal/domain/booking"
	"rentwheels/internal/domain/cars"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Cars() cars.Repository
	Bookings() booking.Repository
	// Outbox stages integration events so they commit together with the aggregates.
	Outbox() outbox.Outbox

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units whose driver keeps the session in context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}
