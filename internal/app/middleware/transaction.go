package middleware

import (
	"context"
	"log/slog"

	"rentwheels/internal/app/commands"
	"rentwheels/internal/app/uow"
)

// TransactionOptions tune the Transaction middleware. The zero value runs each
// command once in a read-write unit.
type TransactionOptions struct {
	// ReadOnly overrides the ReadOnlyCommand marker when set.
	ReadOnly func(cmd commands.Command) bool
	// Retryable reports store errors that are safe to retry from scratch,
	// such as write conflicts between concurrent transactions.
	Retryable   func(err error) bool
	MaxAttempts int
	Logger      *slog.Logger
}

// ReadOnlyCommand marks commands that only read aggregates.
type ReadOnlyCommand interface {
	ReadOnly() bool
}

// Transaction runs each command inside its own unit of work, committing on success.
func Transaction(factory uow.UoWFactory, opts TransactionOptions) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return func(next commands.Bus) commands.Bus {
		return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if _, ok := uow.FromContext(ctx); ok {
				return next.Dispatch(ctx, cmd)
			}
			txOpts := uow.TxOptions{}
			if opts.ReadOnly != nil {
				txOpts.ReadOnly = opts.ReadOnly(cmd)
			} else if ro, ok := cmd.(ReadOnlyCommand); ok {
				txOpts.ReadOnly = ro.ReadOnly()
			}
			var (
				res any
				err error
			)
			for attempt := 1; attempt <= attempts; attempt++ {
				res, err = runInUnit(ctx, factory, txOpts, next, cmd)
				if err == nil || opts.Retryable == nil || !opts.Retryable(err) {
					return res, err
				}
				if opts.Logger != nil {
					opts.Logger.Warn("retrying command after transient store error", "command", cmd.Key(), "attempt", attempt, "error", err)
				}
			}
			return res, err
		})
	}
}

func runInUnit(ctx context.Context, factory uow.UoWFactory, opts uow.TxOptions, next commands.Bus, cmd commands.Command) (any, error) {
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()

	res, err := next.Dispatch(execCtx, cmd)
	if err != nil {
		return nil, err
	}
	if err := unit.Commit(execCtx); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}
