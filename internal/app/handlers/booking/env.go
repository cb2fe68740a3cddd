// Package booking holds the command and query handlers of the booking lifecycle.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rentwheels/internal/app/commands"
	"rentwheels/internal/app/dto"
	"rentwheels/internal/app/handlers/support"
	"rentwheels/internal/app/outbox"
	"rentwheels/internal/app/queries"
	"rentwheels/internal/app/uow"
	"rentwheels/internal/domain/access"
	"rentwheels/internal/domain/availability"
	domainbooking "rentwheels/internal/domain/booking"
	"rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/pricing"
)

// Env carries the collaborators shared by every booking handler.
type Env struct {
	// UoWFactory opens read-only units for queries; commands run in the unit bound by middleware.
	UoWFactory uow.UoWFactory
	Clock      support.Clock
	// Location interprets schedule dates and times. Nil means UTC.
	Location *time.Location
	Encoder  outbox.EventEncoder
	Logger   *slog.Logger
}

func (e Env) now() time.Time {
	return e.Clock.Now()
}

func (e Env) location() *time.Location {
	return support.Location(e.Location)
}

// quote checks the car's availability for period and prices it with tier.
// exclude skips the booking being rescheduled.
func quote(ctx context.Context, unit uow.UnitOfWork, carID cars.ID, period domainbooking.Period, tier pricing.InsuranceTier, exclude domainbooking.ID) (*cars.Car, pricing.Breakdown, error) {
	checker := availability.Checker{Cars: unit.Cars(), Bookings: unit.Bookings()}
	car, result, err := checker.Check(ctx, carID, period.Range, exclude)
	if err != nil {
		return nil, pricing.Breakdown{}, err
	}
	if car == nil {
		return nil, pricing.Breakdown{}, fmt.Errorf("%w: %s", cars.ErrNotFound, carID)
	}
	if err := result.Err(); err != nil {
		return nil, pricing.Breakdown{}, err
	}
	price, err := pricing.Calculate(car.Rates, period.Duration, tier)
	if err != nil {
		return nil, pricing.Breakdown{}, err
	}
	return car, price, nil
}

// load fetches a booking together with its car.
func load(ctx context.Context, unit uow.UnitOfWork, bookingID string) (*domainbooking.Booking, *cars.Car, error) {
	id := strings.TrimSpace(bookingID)
	if id == "" {
		return nil, nil, domainbooking.ErrIDRequired
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.ID(id))
	if err != nil {
		return nil, nil, err
	}
	car, err := unit.Cars().ByID(ctx, b.CarID)
	if err != nil {
		return nil, nil, fmt.Errorf("load car of booking %s: %w", b.ID, err)
	}
	return b, car, nil
}

func resourceOf(b *domainbooking.Booking, car *cars.Car) access.Resource {
	return access.Resource{RenterID: b.RenterID, CarOwnerID: car.OwnerID}
}

// saveBooking maps a lost exclusivity race to the same conflict the checker reports.
func saveBooking(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
	return availability.FromStoreError(unit.Bookings().Save(ctx, b))
}

// mutation applies a lifecycle step to a loaded booking. It reports whether the car changed too.
type mutation func(b *domainbooking.Booking, car *cars.Car, now time.Time) (carChanged bool, err error)

// transition runs the load, authorize, mutate, save sequence shared by lifecycle commands.
func (e Env) transition(ctx context.Context, actor access.Actor, bookingID string, action access.Action, apply mutation) (dto.Booking, error) {
	unit, err := support.UnitFrom(ctx)
	if err != nil {
		return dto.Booking{}, err
	}
	b, car, err := load(ctx, unit, bookingID)
	if err != nil {
		return dto.Booking{}, err
	}
	if err := access.Authorize(actor, action, resourceOf(b, car)); err != nil {
		return dto.Booking{}, err
	}
	from := b.Status()
	now := e.now()
	carChanged, err := apply(b, car, now)
	if err != nil {
		return dto.Booking{}, err
	}
	if carChanged {
		if err := unit.Cars().Save(ctx, car); err != nil {
			return dto.Booking{}, err
		}
	}
	if err := saveBooking(ctx, unit, b); err != nil {
		return dto.Booking{}, err
	}
	if err := support.StageEvents(ctx, unit, e.Encoder, b, car); err != nil {
		return dto.Booking{}, err
	}
	if e.Logger != nil {
		e.Logger.Info("booking transitioned",
			"booking_id", b.ID,
			"car_id", b.CarID,
			"action", action,
			"from", from,
			"to", b.Status(),
			"actor_id", actor.ID,
		)
	}
	return dto.MapBooking(b, car), nil
}

// Register wires every booking handler into the buses.
func Register(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, env Env, photos PhotoStore) {
	commands.Register[CreateBookingCommand, dto.Booking](cmdBus, &CreateHandler{Env: env})
	commands.Register[UpdateBookingCommand, dto.Booking](cmdBus, &UpdateHandler{Env: env})
	commands.Register[CancelBookingCommand, dto.Booking](cmdBus, &CancelHandler{Env: env})
	commands.Register[ConfirmBookingCommand, dto.Booking](cmdBus, &ConfirmHandler{Env: env})
	commands.Register[ActivateBookingCommand, dto.Booking](cmdBus, &ActivateHandler{Env: env})
	commands.Register[CompleteBookingCommand, dto.Booking](cmdBus, &CompleteHandler{Env: env})
	commands.Register[RateBookingCommand, dto.Booking](cmdBus, &RateHandler{Env: env})
	commands.Register[MarkNoShowCommand, dto.Booking](cmdBus, &MarkNoShowHandler{Env: env})
	commands.Register[UploadInspectionPhotoCommand, dto.PhotoUpload](cmdBus, &UploadInspectionPhotoHandler{Env: env, Photos: photos})

	queries.Register[EstimateBookingQuery, dto.Estimate](queryBus, &EstimateHandler{Env: env})
	queries.Register[GetBookingQuery, dto.Booking](queryBus, &GetHandler{Env: env})
	queries.Register[ListMyBookingsQuery, dto.BookingCollection](queryBus, &ListMineHandler{Env: env})
	queries.Register[ListOwnerBookingsQuery, dto.BookingCollection](queryBus, &ListOwnerHandler{Env: env})
}
