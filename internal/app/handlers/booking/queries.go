package booking

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"rentwheels/internal/app/dto"
	"rentwheels/internal/app/handlers/support"
	"rentwheels/internal/app/queries"
	"rentwheels/internal/app/uow"
	"rentwheels/internal/domain/access"
	"rentwheels/internal/domain/availability"
	domainbooking "rentwheels/internal/domain/booking"
	"rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/pricing"
	"rentwheels/internal/domain/shared/validation"
)

const (
	estimateBookingKey   = "bookings.estimate"
	getBookingKey        = "bookings.get"
	listMyBookingsKey    = "bookings.list_mine"
	listOwnerBookingsKey = "bookings.list_owner"
	ownerCarsPageSize    = 100
)

type EstimateBookingQuery struct {
	CarID string
	Draft domainbooking.Draft
}

func (q EstimateBookingQuery) Key() string { return estimateBookingKey }

type EstimateHandler struct {
	Env
}

// Handle quotes a schedule without writing anything. Only the interval, the car and
// the insurance tier are checked. An unavailable car still gets a price, together
// with the reason it cannot be booked.
func (h *EstimateHandler) Handle(ctx context.Context, q EstimateBookingQuery) (dto.Estimate, error) {
	var problems validation.Problems
	carID := strings.TrimSpace(q.CarID)
	if carID == "" {
		problems.Add("carId is required")
	}
	period, tier, err := q.Draft.ValidateQuote(h.now(), h.location())
	problems.Merge(err)
	if err := problems.Err(); err != nil {
		return dto.Estimate{}, err
	}

	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Estimate{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	checker := availability.Checker{Cars: unit.Cars(), Bookings: unit.Bookings()}
	car, result, err := checker.Check(execCtx, cars.ID(carID), period.Range, "")
	if err != nil {
		return dto.Estimate{}, err
	}
	if car == nil {
		return dto.Estimate{}, fmt.Errorf("%w: %s", cars.ErrNotFound, carID)
	}
	price, err := pricing.Calculate(car.Rates, period.Duration, tier)
	if err != nil {
		return dto.Estimate{}, err
	}
	return dto.MapEstimate(car.ID, period, price, result), nil
}

type GetBookingQuery struct {
	Actor     access.Actor
	BookingID string `validate:"required"`
}

func (q GetBookingQuery) Key() string          { return getBookingKey }
func (q GetBookingQuery) Caller() access.Actor { return q.Actor }

type GetHandler struct {
	Env
}

func (h *GetHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, car, err := load(execCtx, unit, q.BookingID)
	if err != nil {
		return dto.Booking{}, err
	}
	if err := access.Authorize(q.Actor, access.ViewBooking, resourceOf(b, car)); err != nil {
		return dto.Booking{}, err
	}
	return dto.MapBooking(b, car), nil
}

type ListMyBookingsQuery struct {
	Actor  access.Actor
	Status string
}

func (q ListMyBookingsQuery) Key() string          { return listMyBookingsKey }
func (q ListMyBookingsQuery) Caller() access.Actor { return q.Actor }

type ListMineHandler struct {
	Env
}

func (h *ListMineHandler) Handle(ctx context.Context, q ListMyBookingsQuery) (dto.BookingCollection, error) {
	status, err := parseStatusFilter(q.Status)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Bookings().ListByRenter(execCtx, q.Actor.ID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return collect(execCtx, unit, items, status, nil)
}

type ListOwnerBookingsQuery struct {
	Actor  access.Actor
	Status string
}

func (q ListOwnerBookingsQuery) Key() string          { return listOwnerBookingsKey }
func (q ListOwnerBookingsQuery) Caller() access.Actor { return q.Actor }

type ListOwnerHandler struct {
	Env
}

// Handle lists bookings across every car the caller owns.
func (h *ListOwnerHandler) Handle(ctx context.Context, q ListOwnerBookingsQuery) (dto.BookingCollection, error) {
	status, err := parseStatusFilter(q.Status)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	owned := make(map[cars.ID]*cars.Car)
	for offset := 0; ; offset += ownerCarsPageSize {
		page, err := unit.Cars().Search(execCtx, cars.SearchParams{OwnerID: q.Actor.ID, Limit: ownerCarsPageSize, Offset: offset})
		if err != nil {
			return dto.BookingCollection{}, err
		}
		for _, c := range page.Items {
			owned[c.ID] = c
		}
		if len(page.Items) < ownerCarsPageSize {
			break
		}
	}
	if len(owned) == 0 {
		return dto.BookingCollection{Items: []dto.Booking{}}, nil
	}
	ids := make([]cars.ID, 0, len(owned))
	for id := range owned {
		ids = append(ids, id)
	}
	items, err := unit.Bookings().ListByCars(execCtx, ids)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if h.Logger != nil {
		h.Logger.Debug("owner bookings listed", "owner_id", q.Actor.ID, "cars", len(owned), "bookings", len(items))
	}
	return collect(execCtx, unit, items, status, owned)
}

func parseStatusFilter(raw string) (domainbooking.Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return "", nil
	}
	status, ok := domainbooking.ParseStatus(raw)
	if !ok {
		return "", validation.New("status must be one of pending, confirmed, active, completed, cancelled, no-show")
	}
	return status, nil
}

// collect filters by status, newest first, resolving cars through known or the store.
func collect(ctx context.Context, unit uow.UnitOfWork, items []*domainbooking.Booking, status domainbooking.Status, known map[cars.ID]*cars.Car) (dto.BookingCollection, error) {
	if known == nil {
		known = make(map[cars.ID]*cars.Car)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	out := make([]dto.Booking, 0, len(items))
	for _, b := range items {
		if status != "" && b.Status() != status {
			continue
		}
		car, ok := known[b.CarID]
		if !ok {
			loaded, err := unit.Cars().ByID(ctx, b.CarID)
			if err != nil {
				return dto.BookingCollection{}, fmt.Errorf("load car %s: %w", b.CarID, err)
			}
			known[b.CarID] = loaded
			car = loaded
		}
		out = append(out, dto.MapBooking(b, car))
	}
	return dto.BookingCollection{Items: out}, nil
}

var (
	_ queries.Handler[EstimateBookingQuery, dto.Estimate]            = (*EstimateHandler)(nil)
	_ queries.Handler[GetBookingQuery, dto.Booking]                  = (*GetHandler)(nil)
	_ queries.Handler[ListMyBookingsQuery, dto.BookingCollection]    = (*ListMineHandler)(nil)
	_ queries.Handler[ListOwnerBookingsQuery, dto.BookingCollection] = (*ListOwnerHandler)(nil)
)
