// Package bootstrap registers every handler and wraps the buses in the
// middleware pipeline shared by the server and integration tests.
package bootstrap

import (
	"log/slog"
	"time"

	"rentwheels/internal/app/commands"
	bookingapp "rentwheels/internal/app/handlers/booking"
	carsapp "rentwheels/internal/app/handlers/cars"
	"rentwheels/internal/app/handlers/support"
	"rentwheels/internal/app/middleware"
	"rentwheels/internal/app/outbox"
	"rentwheels/internal/app/queries"
	"rentwheels/internal/app/uow"
)

type Deps struct {
	UoWFactory  uow.UoWFactory
	Validator   middleware.Validator
	Idempotency middleware.IdempotencyStore
	Flusher     outbox.Flusher
	Photos      bookingapp.PhotoStore
	Clock       support.Clock
	Location    *time.Location
	// Retryable marks store errors after which a command is rerun from scratch.
	Retryable     func(err error) bool
	TxMaxAttempts int
	Logger        *slog.Logger
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// Build wires the handlers. Commands pass validation, the caller check,
// idempotency replay, the outbox nudge and finally their transaction, in that order.
func Build(d Deps) Buses {
	cmdBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()

	encoder := outbox.JSONEventEncoder{}
	bookingapp.Register(cmdBus, queryBus, bookingapp.Env{
		UoWFactory: d.UoWFactory,
		Clock:      d.Clock,
		Location:   d.Location,
		Encoder:    encoder,
		Logger:     d.Logger,
	}, d.Photos)
	carsapp.Register(cmdBus, queryBus, carsapp.Env{
		UoWFactory: d.UoWFactory,
		Clock:      d.Clock,
		Location:   d.Location,
		Encoder:    encoder,
		Logger:     d.Logger,
	})

	return Buses{
		Commands: middleware.ChainCommands(
			cmdBus,
			middleware.Validation(d.Validator),
			middleware.Authorization(middleware.RequireCaller),
			middleware.Idempotency(d.Idempotency, nil),
			middleware.OutboxFlush(d.Flusher, d.Logger),
			middleware.Transaction(d.UoWFactory, middleware.TransactionOptions{
				Retryable:   d.Retryable,
				MaxAttempts: d.TxMaxAttempts,
				Logger:      d.Logger,
			}),
		),
		Queries: middleware.ChainQueries(
			queryBus,
			middleware.QueryValidation(d.Validator),
			middleware.QueryAuthorization(middleware.RequireCaller),
		),
	}
}
