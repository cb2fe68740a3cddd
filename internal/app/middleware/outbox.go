package middleware

import (
	"context"
	"log/slog"

	"rentwheels/internal/app/commands"
	"rentwheels/internal/app/outbox"
)

// OutboxFlush nudges the relay after a command commits. Committed records are
// durable, so a failed nudge is only logged and the relay's next tick publishes them.
func OutboxFlush(f outbox.Flusher, logger *slog.Logger) CommandMiddleware {
	if f == nil {
		panic("middleware: outbox flusher required")
	}
	return func(next commands.Bus) commands.Bus {
		return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if flushErr := f.Flush(ctx); flushErr != nil && logger != nil {
				logger.Warn("outbox flush failed", "command", cmd.Key(), "error", flushErr)
			}
			return res, nil
		})
	}
}
