package bootstrap_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rentwheels/internal/app/bootstrap"
	"rentwheels/internal/app/commands"
	"rentwheels/internal/app/dto"
	bookingapp "rentwheels/internal/app/handlers/booking"
	carsapp "rentwheels/internal/app/handlers/cars"
	"rentwheels/internal/app/queries"
	"rentwheels/internal/app/uow"
	"rentwheels/internal/domain/access"
	"rentwheels/internal/domain/availability"
	domainbooking "rentwheels/internal/domain/booking"
	domaincars "rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/shared/validation"
	"rentwheels/internal/domain/user"
	"rentwheels/internal/infra/storage/memory"
	"rentwheels/internal/infra/validate"
)

var (
	clockNow = time.Date(2030, 1, 10, 9, 0, 0, 0, time.UTC)

	owner  = access.Actor{ID: "owner-1", Roles: []user.Role{user.RoleUser, user.RoleOwner}}
	renter = access.Actor{ID: "renter-1", Roles: []user.Role{user.RoleUser}}
	other  = access.Actor{ID: "renter-2", Roles: []user.Role{user.RoleUser}}
	admin  = access.Actor{ID: "admin-1", Roles: []user.Role{user.RoleAdmin}}
)

type noopFlusher struct{}

func (noopFlusher) Flush(context.Context) error { return nil }

type harness struct {
	store *memory.Store
	buses bootstrap.Buses
}

func newHarness(t *testing.T) harness {
	t.Helper()
	store := seededStore(t)
	return harness{store: store, buses: build(memory.Factory{Store: store}, nil)}
}

func build(factory uow.UoWFactory, retryable func(error) bool) bootstrap.Buses {
	return bootstrap.Build(bootstrap.Deps{
		UoWFactory:    factory,
		Validator:     validate.New(),
		Idempotency:   memory.NewIdempotencyStore(time.Hour),
		Flusher:       noopFlusher{},
		Clock:         func() time.Time { return clockNow },
		Location:      time.UTC,
		Retryable:     retryable,
		TxMaxAttempts: 3,
	})
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	car, err := domaincars.NewCar(domaincars.CreateParams{
		ID:           "car-1",
		OwnerID:      owner.ID,
		Make:         "Toyota",
		Model:        "Corolla",
		Year:         2022,
		Category:     "economy",
		Seats:        5,
		Transmission: "automatic",
		FuelType:     "petrol",
		Location:     domaincars.Location{City: "Lisbon", Country: "PT"},
		Rates:        domaincars.RateCard{Hourly: 1500, Daily: 8900, Weekly: 52000, Currency: "EUR"},
		Now:          clockNow,
	})
	require.NoError(t, err)
	store := memory.NewStore()
	store.SeedCar(car)
	return store
}

func draft(startDate, endDate string) domainbooking.Draft {
	loc := domainbooking.Location{Address: "Rua Augusta 1", City: "Lisbon", Country: "PT"}
	return domainbooking.Draft{
		Schedule: domainbooking.Schedule{
			StartDate: startDate,
			EndDate:   endDate,
			StartTime: "10:00",
			EndTime:   "10:00",
		},
		Pickup:        loc,
		Dropoff:       loc,
		PaymentMethod: "card",
		Driver: domainbooking.DriverDetails{
			LicenseNumber: "LIC-123",
			LicenseExpiry: time.Date(2032, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Insurance: "basic",
	}
}

func (h harness) create(t *testing.T, actor access.Actor, d domainbooking.Draft) (dto.Booking, error) {
	t.Helper()
	return commands.Dispatch[bookingapp.CreateBookingCommand, dto.Booking](context.Background(), h.buses.Commands, bookingapp.CreateBookingCommand{
		Actor: actor,
		CarID: "car-1",
		Draft: d,
	})
}

func (h harness) mustCreate(t *testing.T, actor access.Actor, d domainbooking.Draft) dto.Booking {
	t.Helper()
	b, err := h.create(t, actor, d)
	require.NoError(t, err)
	return b
}

func (h harness) car(t *testing.T) dto.Car {
	t.Helper()
	car, err := queries.Ask[carsapp.GetCarQuery, dto.Car](context.Background(), h.buses.Queries, carsapp.GetCarQuery{CarID: "car-1"})
	require.NoError(t, err)
	return car
}

// complete drives a booking from pending to completed.
func (h harness) complete(t *testing.T, bookingID string) dto.Booking {
	t.Helper()
	ctx := context.Background()
	_, err := commands.Dispatch[bookingapp.ConfirmBookingCommand, dto.Booking](ctx, h.buses.Commands, bookingapp.ConfirmBookingCommand{Actor: owner, BookingID: bookingID})
	require.NoError(t, err)
	_, err = commands.Dispatch[bookingapp.ActivateBookingCommand, dto.Booking](ctx, h.buses.Commands, bookingapp.ActivateBookingCommand{Actor: owner, BookingID: bookingID, Mileage: 1000, FuelLevel: 80})
	require.NoError(t, err)
	done, err := commands.Dispatch[bookingapp.CompleteBookingCommand, dto.Booking](ctx, h.buses.Commands, bookingapp.CompleteBookingCommand{
		Actor:     owner,
		BookingID: bookingID,
		Mileage:   1250,
		FuelLevel: 60,
		Damages:   []string{"scratch on rear bumper"},
	})
	require.NoError(t, err)
	return done
}

func (h harness) rate(bookingID string, actor access.Actor, carScore int) (dto.Booking, error) {
	return commands.Dispatch[bookingapp.RateBookingCommand, dto.Booking](context.Background(), h.buses.Commands, bookingapp.RateBookingCommand{
		Actor:         actor,
		BookingID:     bookingID,
		CarRating:     carScore,
		ServiceRating: 4,
		Comment:       "smooth pickup",
	})
}

func TestBookingLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created := h.mustCreate(t, renter, draft("2030-02-01", "2030-02-03"))
	require.Equal(t, "pending", created.Status)
	require.Equal(t, 2, created.Duration.Days)
	require.Equal(t, renter.ID, created.RenterID)

	_, err := commands.Dispatch[bookingapp.ConfirmBookingCommand, dto.Booking](ctx, h.buses.Commands, bookingapp.ConfirmBookingCommand{Actor: renter, BookingID: created.ID})
	require.ErrorIs(t, err, access.ErrForbidden)

	done := h.complete(t, created.ID)
	require.Equal(t, "completed", done.Status)
	require.NotNil(t, done.Inspection)
	require.Equal(t, []string{"scratch on rear bumper"}, done.Inspection.Damages)
	require.Equal(t, 1, h.car(t).TotalBookings)

	_, err = h.rate(created.ID, owner, 5)
	require.ErrorIs(t, err, access.ErrForbidden)

	rated, err := h.rate(created.ID, renter, 5)
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	require.Equal(t, 5, rated.Rating.Car)

	_, err = h.rate(created.ID, renter, 3)
	require.ErrorIs(t, err, domainbooking.ErrAlreadyRated)

	second := h.mustCreate(t, other, draft("2030-03-01", "2030-03-02"))
	h.complete(t, second.ID)
	_, err = h.rate(second.ID, other, 4)
	require.NoError(t, err)

	car := h.car(t)
	require.Equal(t, 2, car.Rating.Count)
	require.InDelta(t, 4.5, car.Rating.Average, 1e-9)
	require.Equal(t, 2, car.TotalBookings)
}

func TestCreateRequiresCaller(t *testing.T) {
	h := newHarness(t)
	_, err := h.create(t, access.Actor{}, draft("2030-02-01", "2030-02-03"))
	require.ErrorIs(t, err, access.ErrUnauthenticated)
}

func TestCreateAggregatesValidationProblems(t *testing.T) {
	h := newHarness(t)
	d := draft("2030-02-01", "2030-02-03")
	d.Schedule.StartTime = "25:00"
	d.Pickup.City = ""
	d.Insurance = "gold"

	_, err := h.create(t, renter, d)
	var invalid *validation.Error
	require.ErrorAs(t, err, &invalid)
	require.Contains(t, invalid.Problems, "startTime must be HH:MM between 00:00 and 23:59")
	require.Contains(t, invalid.Problems, "pickupLocation.city is required")
	require.Contains(t, invalid.Problems, "insuranceType must be one of basic, comprehensive, premium")
}

func TestCreateRejectsOverlap(t *testing.T) {
	h := newHarness(t)
	first := h.mustCreate(t, renter, draft("2030-02-01", "2030-02-03"))

	_, err := h.create(t, other, draft("2030-02-02", "2030-02-05"))
	var conflict *availability.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, availability.ReasonBooked, conflict.Reason)
	require.Len(t, conflict.Conflicts, 1)
	require.Equal(t, first.Start, conflict.Conflicts[0].Start)
}

// racingFactory lets a rival command commit just before the first
// read-write unit it hands out commits.
type racingFactory struct {
	memory.Factory
	rival func(ctx context.Context) error
}

func (f *racingFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	unit, err := f.Factory.Begin(ctx, opts)
	if err != nil || opts.ReadOnly || f.rival == nil {
		return unit, err
	}
	rival := f.rival
	f.rival = nil
	return racingUnit{UnitOfWork: unit, before: rival}, nil
}

type racingUnit struct {
	uow.UnitOfWork
	before func(ctx context.Context) error
}

func (u racingUnit) Commit(ctx context.Context) error {
	if err := u.before(ctx); err != nil {
		return err
	}
	return u.UnitOfWork.Commit(ctx)
}

func TestCommitRaceLoserGetsBookedConflict(t *testing.T) {
	tests := []struct {
		name      string
		retryable func(error) bool
		conflicts int
	}{
		{name: "without retry", conflicts: 0},
		{name: "rerun after lost commit", retryable: memory.RetryableCommitError, conflicts: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore(t)
			factory := &racingFactory{Factory: memory.Factory{Store: store}}
			h := harness{store: store, buses: build(factory, tt.retryable)}
			var rival dto.Booking
			factory.rival = func(context.Context) error {
				var err error
				rival, err = h.create(t, other, draft("2030-02-02", "2030-02-05"))
				return err
			}

			_, err := h.create(t, renter, draft("2030-02-01", "2030-02-03"))
			require.Error(t, err)
			var conflict *availability.ConflictError
			require.ErrorAs(t, availability.FromStoreError(err), &conflict)
			require.Equal(t, availability.ReasonBooked, conflict.Reason)
			require.Len(t, conflict.Conflicts, tt.conflicts)
			if tt.conflicts > 0 {
				require.Equal(t, rival.Start, conflict.Conflicts[0].Start)
			}

			mine, err := queries.Ask[bookingapp.ListMyBookingsQuery, dto.BookingCollection](context.Background(), h.buses.Queries, bookingapp.ListMyBookingsQuery{Actor: renter})
			require.NoError(t, err)
			require.Empty(t, mine.Items)
		})
	}
}

func TestCancelReleasesInterval(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.mustCreate(t, renter, draft("2030-02-01", "2030-02-03"))

	cancelled, err := commands.Dispatch[bookingapp.CancelBookingCommand, dto.Booking](ctx, h.buses.Commands, bookingapp.CancelBookingCommand{
		Actor:     renter,
		BookingID: first.ID,
		Reason:    "plans changed",
	})
	require.NoError(t, err)
	require.Equal(t, "cancelled", cancelled.Status)
	require.NotNil(t, cancelled.Cancellation)
	require.Equal(t, 100, cancelled.Cancellation.RefundPercent)

	_, err = h.create(t, other, draft("2030-02-01", "2030-02-03"))
	require.NoError(t, err)

	_, err = commands.Dispatch[bookingapp.ConfirmBookingCommand, dto.Booking](ctx, h.buses.Commands, bookingapp.ConfirmBookingCommand{Actor: owner, BookingID: first.ID})
	require.ErrorIs(t, err, domainbooking.ErrInvalidStateTransition)
}

func TestEstimateIsStableAndMatchesCreate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	q := bookingapp.EstimateBookingQuery{CarID: "car-1", Draft: draft("2030-02-01", "2030-02-04")}

	first, err := queries.Ask[bookingapp.EstimateBookingQuery, dto.Estimate](ctx, h.buses.Queries, q)
	require.NoError(t, err)
	second, err := queries.Ask[bookingapp.EstimateBookingQuery, dto.Estimate](ctx, h.buses.Queries, q)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.True(t, first.Available)

	mine, err := queries.Ask[bookingapp.ListMyBookingsQuery, dto.BookingCollection](ctx, h.buses.Queries, bookingapp.ListMyBookingsQuery{Actor: renter})
	require.NoError(t, err)
	require.Empty(t, mine.Items)

	created := h.mustCreate(t, renter, draft("2030-02-01", "2030-02-04"))
	require.Equal(t, first.Price, created.Price)
}

func TestEstimateQuotesScheduleOnlyAndReportsConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	quoteOnly := domainbooking.Draft{Schedule: draft("2030-02-01", "2030-02-04").Schedule}

	free, err := queries.Ask[bookingapp.EstimateBookingQuery, dto.Estimate](ctx, h.buses.Queries, bookingapp.EstimateBookingQuery{CarID: "car-1", Draft: quoteOnly})
	require.NoError(t, err)
	require.True(t, free.Available)
	require.Empty(t, free.Reason)
	require.Equal(t, "basic", free.Price.InsuranceType)

	h.mustCreate(t, renter, draft("2030-02-02", "2030-02-03"))

	taken, err := queries.Ask[bookingapp.EstimateBookingQuery, dto.Estimate](ctx, h.buses.Queries, bookingapp.EstimateBookingQuery{CarID: "car-1", Draft: quoteOnly})
	require.NoError(t, err)
	require.False(t, taken.Available)
	require.Equal(t, string(availability.ReasonBooked), taken.Reason)
	require.Len(t, taken.Conflicts, 1)
	require.Equal(t, free.Price, taken.Price)

	_, err = queries.Ask[bookingapp.EstimateBookingQuery, dto.Estimate](ctx, h.buses.Queries, bookingapp.EstimateBookingQuery{CarID: "missing", Draft: quoteOnly})
	require.ErrorIs(t, err, domaincars.ErrNotFound)

	quoteOnly.Insurance = "platinum"
	_, err = queries.Ask[bookingapp.EstimateBookingQuery, dto.Estimate](ctx, h.buses.Queries, bookingapp.EstimateBookingQuery{Draft: quoteOnly})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	require.ElementsMatch(t, []string{"carId is required", "insuranceType must be one of basic, comprehensive, premium"}, verr.Problems)
}

func TestUpdateRescheduleIgnoresOwnInterval(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created := h.mustCreate(t, renter, draft("2030-02-01", "2030-02-03"))

	end := "2030-02-04"
	updated, err := commands.Dispatch[bookingapp.UpdateBookingCommand, dto.Booking](ctx, h.buses.Commands, bookingapp.UpdateBookingCommand{
		Actor:     renter,
		BookingID: created.ID,
		Changes: domainbooking.Changes{Schedule: &domainbooking.Schedule{
			StartDate: "2030-02-01",
			EndDate:   end,
			StartTime: "10:00",
			EndTime:   "10:00",
		}},
	})
	require.NoError(t, err)
	require.Equal(t, end, updated.EndDate)
	require.Equal(t, 3, updated.Duration.Days)
	require.Greater(t, updated.Price.Total, created.Price.Total)

	_, err = commands.Dispatch[bookingapp.UpdateBookingCommand, dto.Booking](ctx, h.buses.Commands, bookingapp.UpdateBookingCommand{
		Actor:     other,
		BookingID: created.ID,
		Changes:   domainbooking.Changes{},
	})
	require.ErrorIs(t, err, access.ErrForbidden)
}

func TestIdempotentCreateReplaysResult(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cmd := bookingapp.CreateBookingCommand{
		Actor:           renter,
		CarID:           "car-1",
		Draft:           draft("2030-02-01", "2030-02-03"),
		IdempotencyKeyV: "req-42",
	}

	first, err := commands.Dispatch[bookingapp.CreateBookingCommand, dto.Booking](ctx, h.buses.Commands, cmd)
	require.NoError(t, err)
	replayed, err := commands.Dispatch[bookingapp.CreateBookingCommand, dto.Booking](ctx, h.buses.Commands, cmd)
	require.NoError(t, err)
	require.Equal(t, first.ID, replayed.ID)

	mine, err := queries.Ask[bookingapp.ListMyBookingsQuery, dto.BookingCollection](ctx, h.buses.Queries, bookingapp.ListMyBookingsQuery{Actor: renter})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
}

func TestWindowsBlockBookings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	add := carsapp.AddWindowCommand{
		Actor:     renter,
		CarID:     "car-1",
		Kind:      carsapp.Maintenance,
		StartDate: "2030-02-02",
		EndDate:   "2030-02-02",
		Reason:    "tyres",
	}
	_, err := commands.Dispatch[carsapp.AddWindowCommand, dto.Window](ctx, h.buses.Commands, add)
	require.ErrorIs(t, err, access.ErrForbidden)

	add.Actor = owner
	window, err := commands.Dispatch[carsapp.AddWindowCommand, dto.Window](ctx, h.buses.Commands, add)
	require.NoError(t, err)

	_, err = h.create(t, renter, draft("2030-02-01", "2030-02-03"))
	var conflict *availability.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, availability.ReasonMaintenance, conflict.Reason)

	_, err = commands.Dispatch[carsapp.RemoveWindowCommand, dto.Car](ctx, h.buses.Commands, carsapp.RemoveWindowCommand{
		Actor:    admin,
		CarID:    "car-1",
		Kind:     carsapp.Maintenance,
		WindowID: window.ID,
	})
	require.NoError(t, err)
	h.mustCreate(t, renter, draft("2030-02-01", "2030-02-03"))
}

func TestSearchFiltersByAvailability(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.mustCreate(t, renter, draft("2030-02-01", "2030-02-03"))

	search := func(s *domainbooking.Schedule) dto.CarCollection {
		out, err := queries.Ask[carsapp.SearchCarsQuery, dto.CarCollection](ctx, h.buses.Queries, carsapp.SearchCarsQuery{City: "lisbon", Schedule: s})
		require.NoError(t, err)
		return out
	}
	require.Len(t, search(nil).Items, 1)
	require.Empty(t, search(&domainbooking.Schedule{StartDate: "2030-02-02", EndDate: "2030-02-02", StartTime: "09:00", EndTime: "18:00"}).Items)
	require.Len(t, search(&domainbooking.Schedule{StartDate: "2030-02-05", EndDate: "2030-02-06", StartTime: "09:00", EndTime: "18:00"}).Items, 1)
}

func TestOwnerSeesFleetBookings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.mustCreate(t, renter, draft("2030-02-01", "2030-02-03"))
	h.mustCreate(t, other, draft("2030-02-10", "2030-02-12"))

	fleet, err := queries.Ask[bookingapp.ListOwnerBookingsQuery, dto.BookingCollection](ctx, h.buses.Queries, bookingapp.ListOwnerBookingsQuery{Actor: owner})
	require.NoError(t, err)
	require.Len(t, fleet.Items, 2)

	none, err := queries.Ask[bookingapp.ListOwnerBookingsQuery, dto.BookingCollection](ctx, h.buses.Queries, bookingapp.ListOwnerBookingsQuery{Actor: renter})
	require.NoError(t, err)
	require.Empty(t, none.Items)

	_, err = queries.Ask[bookingapp.ListOwnerBookingsQuery, dto.BookingCollection](ctx, h.buses.Queries, bookingapp.ListOwnerBookingsQuery{})
	require.ErrorIs(t, err, access.ErrUnauthenticated)
}
