package booking

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"rentwheels/internal/app/commands"
	"rentwheels/internal/app/dto"
	"rentwheels/internal/app/handlers/support"
	"rentwheels/internal/app/middleware"
	"rentwheels/internal/domain/access"
	domainbooking "rentwheels/internal/domain/booking"
	"rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/shared/validation"
)

const createBookingKey = "bookings.create"

type CreateBookingCommand struct {
	Actor           access.Actor
	CarID           string
	Draft           domainbooking.Draft
	IdempotencyKeyV string `validate:"omitempty,max=128"`
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) Caller() access.Actor { return c.Actor }

// IdempotencyKey scopes the client key to the renter so keys never collide across users.
func (c CreateBookingCommand) IdempotencyKey() string {
	key := strings.TrimSpace(c.IdempotencyKeyV)
	if key == "" {
		return ""
	}
	return c.Actor.ID + ":" + key
}

func (c CreateBookingCommand) ResultPrototype() any { return &dto.Booking{} }

type CreateHandler struct {
	Env
}

func (h *CreateHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (dto.Booking, error) {
	unit, err := support.UnitFrom(ctx)
	if err != nil {
		return dto.Booking{}, err
	}
	now := h.now()

	var problems validation.Problems
	carID := strings.TrimSpace(cmd.CarID)
	if carID == "" {
		problems.Add("carId is required")
	}
	period, tier, err := cmd.Draft.Validate(now, h.location())
	problems.Merge(err)
	if err := problems.Err(); err != nil {
		return dto.Booking{}, err
	}

	car, price, err := quote(ctx, unit, cars.ID(carID), period, tier, "")
	if err != nil {
		return dto.Booking{}, err
	}

	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:       domainbooking.ID(uuid.NewString()),
		RenterID: cmd.Actor.ID,
		CarID:    car.ID,
		Draft:    cmd.Draft,
		Period:   period,
		Price:    price,
		Now:      now,
	})
	if err != nil {
		return dto.Booking{}, err
	}
	if err := saveBooking(ctx, unit, b); err != nil {
		return dto.Booking{}, err
	}
	if err := support.StageEvents(ctx, unit, h.Encoder, b); err != nil {
		return dto.Booking{}, err
	}

	if h.Logger != nil {
		h.Logger.Info("booking created",
			"booking_id", b.ID,
			"car_id", car.ID,
			"renter_id", b.RenterID,
			"start", period.Range.Start,
			"end", period.Range.End,
			"total", price.Total.String(),
		)
	}
	return dto.MapBooking(b, car), nil
}

var _ commands.Handler[CreateBookingCommand, dto.Booking] = (*CreateHandler)(nil)
var _ middleware.IdempotentCommand = CreateBookingCommand{}
var _ middleware.Acting = CreateBookingCommand{}
