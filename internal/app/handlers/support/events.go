package support

import (
	"context"

	"rentwheels/internal/app/outbox"
	"rentwheels/internal/app/uow"
	"rentwheels/internal/domain/shared/events"
)

// EventSource is an aggregate that buffers domain events.
type EventSource interface {
	PendingEvents() []events.DomainEvent
	ClearEvents()
}

// StageEvents moves the pending events of every source into the unit's outbox.
func StageEvents(ctx context.Context, unit uow.UnitOfWork, encoder outbox.EventEncoder, sources ...EventSource) error {
	for _, src := range sources {
		pending := src.PendingEvents()
		src.ClearEvents()
		if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), encoder, pending); err != nil {
			return err
		}
	}
	return nil
}
