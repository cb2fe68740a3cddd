package booking

import (
	"context"
	"time"

	"rentwheels/internal/app/commands"
	"rentwheels/internal/app/dto"
	"rentwheels/internal/domain/access"
	domainbooking "rentwheels/internal/domain/booking"
	"rentwheels/internal/domain/cars"
)

const (
	cancelBookingKey   = "bookings.cancel"
	confirmBookingKey  = "bookings.confirm"
	activateBookingKey = "bookings.activate"
	completeBookingKey = "bookings.complete"
	rateBookingKey     = "bookings.rate"
	noShowBookingKey   = "bookings.no_show"
)

type CancelBookingCommand struct {
	Actor     access.Actor
	BookingID string `validate:"required"`
	Reason    string `validate:"max=500"`
}

func (c CancelBookingCommand) Key() string          { return cancelBookingKey }
func (c CancelBookingCommand) Caller() access.Actor { return c.Actor }

type CancelHandler struct {
	Env
}

func (h *CancelHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (dto.Booking, error) {
	return h.transition(ctx, cmd.Actor, cmd.BookingID, access.CancelBooking, func(b *domainbooking.Booking, _ *cars.Car, now time.Time) (bool, error) {
		_, err := b.Cancel(cmd.Reason, cmd.Actor.ID, now)
		return false, err
	})
}

type ConfirmBookingCommand struct {
	Actor     access.Actor
	BookingID string `validate:"required"`
}

func (c ConfirmBookingCommand) Key() string          { return confirmBookingKey }
func (c ConfirmBookingCommand) Caller() access.Actor { return c.Actor }

type ConfirmHandler struct {
	Env
}

func (h *ConfirmHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (dto.Booking, error) {
	return h.transition(ctx, cmd.Actor, cmd.BookingID, access.ConfirmBooking, func(b *domainbooking.Booking, _ *cars.Car, now time.Time) (bool, error) {
		return false, b.Confirm(cmd.Actor.ID, now)
	})
}

type ActivateBookingCommand struct {
	Actor     access.Actor
	BookingID string `validate:"required"`
	Mileage   int    `validate:"gte=0"`
	FuelLevel int    `validate:"gte=0,lte=100"`
}

func (c ActivateBookingCommand) Key() string          { return activateBookingKey }
func (c ActivateBookingCommand) Caller() access.Actor { return c.Actor }

type ActivateHandler struct {
	Env
}

// Handle hands the car over. The car's lifecycle status is left to its owner.
func (h *ActivateHandler) Handle(ctx context.Context, cmd ActivateBookingCommand) (dto.Booking, error) {
	return h.transition(ctx, cmd.Actor, cmd.BookingID, access.ActivateBooking, func(b *domainbooking.Booking, _ *cars.Car, now time.Time) (bool, error) {
		return false, b.Activate(domainbooking.Handover{
			At:        now,
			By:        cmd.Actor.ID,
			Mileage:   cmd.Mileage,
			FuelLevel: cmd.FuelLevel,
		})
	})
}

type CompleteBookingCommand struct {
	Actor     access.Actor
	BookingID string `validate:"required"`
	Mileage   int    `validate:"gte=0"`
	FuelLevel int    `validate:"gte=0,lte=100"`
	Notes     string `validate:"max=2000"`
	Damages   []string
	Photos    []string `validate:"dive,url"`
}

func (c CompleteBookingCommand) Key() string          { return completeBookingKey }
func (c CompleteBookingCommand) Caller() access.Actor { return c.Actor }

type CompleteHandler struct {
	Env
}

// Handle records the return and inspection, then counts the rental on the car.
func (h *CompleteHandler) Handle(ctx context.Context, cmd CompleteBookingCommand) (dto.Booking, error) {
	return h.transition(ctx, cmd.Actor, cmd.BookingID, access.CompleteBooking, func(b *domainbooking.Booking, car *cars.Car, now time.Time) (bool, error) {
		err := b.Complete(
			domainbooking.Handover{At: now, By: cmd.Actor.ID, Mileage: cmd.Mileage, FuelLevel: cmd.FuelLevel},
			domainbooking.Inspection{Notes: cmd.Notes, Damages: cmd.Damages, Photos: cmd.Photos, Inspector: cmd.Actor.ID, At: now},
		)
		if err != nil {
			return false, err
		}
		car.RecordCompletedBooking(now)
		return true, nil
	})
}

type RateBookingCommand struct {
	Actor         access.Actor
	BookingID     string `validate:"required"`
	CarRating     int
	ServiceRating int
	Comment       string `validate:"max=2000"`
}

func (c RateBookingCommand) Key() string          { return rateBookingKey }
func (c RateBookingCommand) Caller() access.Actor { return c.Actor }

type RateHandler struct {
	Env
}

// Handle stores the one-time rating and folds the car score into the car's average.
func (h *RateHandler) Handle(ctx context.Context, cmd RateBookingCommand) (dto.Booking, error) {
	return h.transition(ctx, cmd.Actor, cmd.BookingID, access.RateBooking, func(b *domainbooking.Booking, car *cars.Car, now time.Time) (bool, error) {
		rating, err := b.Rate(cmd.CarRating, cmd.ServiceRating, cmd.Comment, now)
		if err != nil {
			return false, err
		}
		if err := car.ApplyRating(rating.Car, now); err != nil {
			return false, err
		}
		return true, nil
	})
}

type MarkNoShowCommand struct {
	Actor     access.Actor
	BookingID string `validate:"required"`
}

func (c MarkNoShowCommand) Key() string          { return noShowBookingKey }
func (c MarkNoShowCommand) Caller() access.Actor { return c.Actor }

type MarkNoShowHandler struct {
	Env
}

func (h *MarkNoShowHandler) Handle(ctx context.Context, cmd MarkNoShowCommand) (dto.Booking, error) {
	return h.transition(ctx, cmd.Actor, cmd.BookingID, access.MarkBookingNoShow, func(b *domainbooking.Booking, _ *cars.Car, now time.Time) (bool, error) {
		return false, b.MarkNoShow(cmd.Actor.ID, now)
	})
}

var (
	_ commands.Handler[CancelBookingCommand, dto.Booking]   = (*CancelHandler)(nil)
	_ commands.Handler[ConfirmBookingCommand, dto.Booking]  = (*ConfirmHandler)(nil)
	_ commands.Handler[ActivateBookingCommand, dto.Booking] = (*ActivateHandler)(nil)
	_ commands.Handler[CompleteBookingCommand, dto.Booking] = (*CompleteHandler)(nil)
	_ commands.Handler[RateBookingCommand, dto.Booking]     = (*RateHandler)(nil)
	_ commands.Handler[MarkNoShowCommand, dto.Booking]      = (*MarkNoShowHandler)(nil)
)
