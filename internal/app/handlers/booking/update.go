package booking

import (
	"context"

	"rentwheels/internal/app/commands"
	"rentwheels/internal/app/dto"
	"rentwheels/internal/app/handlers/support"
	"rentwheels/internal/domain/access"
	domainbooking "rentwheels/internal/domain/booking"
	"rentwheels/internal/domain/pricing"
)

const updateBookingKey = "bookings.update"

type UpdateBookingCommand struct {
	Actor     access.Actor
	BookingID string `validate:"required"`
	Changes   domainbooking.Changes
}

func (c UpdateBookingCommand) Key() string { return updateBookingKey }

func (c UpdateBookingCommand) Caller() access.Actor { return c.Actor }

type UpdateHandler struct {
	Env
}

// Handle replaces the supplied fields. A new schedule is re-checked against the
// car while ignoring the booking's own interval, then repriced with the stored tier.
func (h *UpdateHandler) Handle(ctx context.Context, cmd UpdateBookingCommand) (dto.Booking, error) {
	unit, err := support.UnitFrom(ctx)
	if err != nil {
		return dto.Booking{}, err
	}
	b, car, err := load(ctx, unit, cmd.BookingID)
	if err != nil {
		return dto.Booking{}, err
	}
	if err := access.Authorize(cmd.Actor, access.UpdateBooking, resourceOf(b, car)); err != nil {
		return dto.Booking{}, err
	}
	if err := b.Editable(); err != nil {
		return dto.Booking{}, err
	}

	now := h.now()
	period, err := cmd.Changes.Validate(now, h.location())
	if err != nil {
		return dto.Booking{}, err
	}
	var price *pricing.Breakdown
	if period != nil {
		quoted, p, err := quote(ctx, unit, b.CarID, *period, b.Price.Tier, b.ID)
		if err != nil {
			return dto.Booking{}, err
		}
		car = quoted
		price = &p
	}

	if err := b.Apply(cmd.Changes, period, price, now); err != nil {
		return dto.Booking{}, err
	}
	if err := saveBooking(ctx, unit, b); err != nil {
		return dto.Booking{}, err
	}
	if err := support.StageEvents(ctx, unit, h.Encoder, b); err != nil {
		return dto.Booking{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking updated", "booking_id", b.ID, "rescheduled", period != nil, "actor_id", cmd.Actor.ID)
	}
	return dto.MapBooking(b, car), nil
}

var _ commands.Handler[UpdateBookingCommand, dto.Booking] = (*UpdateHandler)(nil)
