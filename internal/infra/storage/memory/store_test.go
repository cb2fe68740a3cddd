package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rentwheels/internal/app/middleware"
	"rentwheels/internal/app/outbox"
	"rentwheels/internal/app/uow"
	domainbooking "rentwheels/internal/domain/booking"
	domaincars "rentwheels/internal/domain/cars"
)

var now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *Store {
	t.Helper()
	car, err := domaincars.NewCar(domaincars.CreateParams{
		ID:      "car-1",
		OwnerID: "owner-1",
		Make:    "Toyota",
		Model:   "Corolla",
		Rates:   domaincars.RateCard{Hourly: 1500, Daily: 8900, Currency: "usd"},
		Now:     now,
	})
	require.NoError(t, err)
	store := NewStore()
	store.SeedCar(car)
	return store
}

func newBooking(t *testing.T, id string, startIn time.Duration) *domainbooking.Booking {
	t.Helper()
	period := domainbooking.Period{}
	period.Range.Start = now.Add(startIn)
	period.Range.End = period.Range.Start.Add(48 * time.Hour)
	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:       domainbooking.ID(id),
		RenterID: "renter-1",
		CarID:    "car-1",
		Period:   period,
		Now:      now,
	})
	require.NoError(t, err)
	return b
}

func begin(t *testing.T, store *Store) uow.UnitOfWork {
	t.Helper()
	unit, err := Factory{Store: store}.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	return unit
}

func TestConcurrentBookingsOfOneIntervalAdmitExactlyOne(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failures  []error
	)
	candidates := make([]*domainbooking.Booking, attempts)
	for i := range candidates {
		candidates[i] = newBooking(t, fmt.Sprintf("b-%d", i), 72*time.Hour)
	}
	for _, b := range candidates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unit, err := Factory{Store: store}.Begin(ctx, uow.TxOptions{})
			if err != nil {
				panic(err)
			}
			err = unit.Bookings().Save(ctx, b)
			if err == nil {
				err = unit.Commit(ctx)
			} else {
				_ = unit.Rollback(ctx)
			}
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, succeeded)
	for _, err := range failures {
		require.ErrorIs(t, err, domainbooking.ErrIntervalTaken)
	}

	unit := begin(t, store)
	list, err := unit.Bookings().Overlapping(ctx, "car-1", newBooking(t, "probe", 72*time.Hour).Period.Range, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestCancelledBookingReleasesItsInterval(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	unit := begin(t, store)
	first := newBooking(t, "b-1", 72*time.Hour)
	require.NoError(t, unit.Bookings().Save(ctx, first))
	require.NoError(t, unit.Commit(ctx))

	unit = begin(t, store)
	loaded, err := unit.Bookings().ByID(ctx, "b-1")
	require.NoError(t, err)
	_, err = loaded.Cancel("plans changed", "renter-1", now)
	require.NoError(t, err)
	require.NoError(t, unit.Bookings().Save(ctx, loaded))
	second := newBooking(t, "b-2", 72*time.Hour)
	require.NoError(t, unit.Bookings().Save(ctx, second))
	require.NoError(t, unit.Commit(ctx))

	unit = begin(t, store)
	stored, err := unit.Bookings().ByID(ctx, "b-1")
	require.NoError(t, err)
	require.Equal(t, domainbooking.StatusCancelled, stored.Status())
	require.Equal(t, int64(2), stored.Version)
}

func TestStaleCarWriteIsRejected(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	a, b := begin(t, store), begin(t, store)
	carA, err := a.Cars().ByID(ctx, "car-1")
	require.NoError(t, err)
	carB, err := b.Cars().ByID(ctx, "car-1")
	require.NoError(t, err)

	carA.RecordCompletedBooking(now)
	require.NoError(t, a.Cars().Save(ctx, carA))
	carB.RecordCompletedBooking(now)
	require.NoError(t, b.Cars().Save(ctx, carB))

	require.NoError(t, a.Commit(ctx))
	require.ErrorIs(t, b.Commit(ctx), domaincars.ErrConcurrentUpdate)

	fresh, err := begin(t, store).Cars().ByID(ctx, "car-1")
	require.NoError(t, err)
	require.Equal(t, 1, fresh.TotalBookings)
	require.Equal(t, int64(2), fresh.Version)
}

func TestUnitReadsItsOwnWritesAndRollbackDiscardsThem(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	unit := begin(t, store)
	require.NoError(t, unit.Bookings().Save(ctx, newBooking(t, "b-1", 72*time.Hour)))
	mine, err := unit.Bookings().ListByRenter(ctx, "renter-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.ErrorIs(t, unit.Bookings().Save(ctx, newBooking(t, "b-2", 96*time.Hour)), domainbooking.ErrIntervalTaken)
	require.NoError(t, unit.Rollback(ctx))

	_, err = begin(t, store).Bookings().ByID(ctx, "b-1")
	require.True(t, errors.Is(err, domainbooking.ErrNotFound))
}

func TestCarSearchPagesFilteredCatalog(t *testing.T) {
	store := seededStore(t)
	for i := 2; i <= 5; i++ {
		car, err := domaincars.NewCar(domaincars.CreateParams{
			ID:       domaincars.ID(fmt.Sprintf("car-%d", i)),
			OwnerID:  "owner-2",
			Location: domaincars.Location{City: "Austin"},
			Rates:    domaincars.RateCard{Hourly: 1000, Daily: int64(5000 + i*100), Currency: "USD"},
			Now:      now,
		})
		require.NoError(t, err)
		store.SeedCar(car)
	}

	res, err := begin(t, store).Cars().Search(context.Background(), domaincars.SearchParams{OwnerID: "owner-2", Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, 4, res.Total)
	require.Len(t, res.Items, 2)
	require.Equal(t, domaincars.ID("car-3"), res.Items[0].ID)
}

func TestOutboxRelayLifecycle(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	unit := begin(t, store)
	require.NoError(t, unit.Outbox().Add(ctx, outbox.EventRecord{ID: "evt-1", Name: "booking.created", Aggregate: "b-1"}))
	require.NoError(t, unit.Commit(ctx))

	relay := OutboxStore{Store: store}
	msg, err := relay.Claim(ctx, "w-1", now)
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.Zero(t, msg.Attempts)

	again, err := relay.Claim(ctx, "w-1", now)
	require.NoError(t, err)
	require.Nil(t, again)

	require.NoError(t, relay.MarkFailed(ctx, "evt-1", now.Add(time.Minute), "broker down"))
	msg, err = relay.Claim(ctx, "w-1", now)
	require.NoError(t, err)
	require.Nil(t, msg)

	msg, err = relay.Claim(ctx, "w-1", now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, msg.Attempts)
	require.Equal(t, "broker down", msg.LastError)
	require.NoError(t, relay.MarkSent(ctx, "evt-1", now))
	require.Zero(t, relay.Pending())
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	unit, err := Factory{Store: seededStore(t)}.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	err = unit.Outbox().Add(context.Background(), outbox.EventRecord{ID: "evt-1"})
	require.ErrorIs(t, err, ErrReadOnlyUnit)
}

func TestIdempotencyRecordsExpire(t *testing.T) {
	clock := now
	store := NewIdempotencyStore(time.Hour)
	store.Now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, middlewareRecord("k", clock)))
	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)

	clock = clock.Add(time.Hour)
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, found)
}


func middlewareRecord(key string, at time.Time) middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{Key: key, Payload: []byte(`{}`), CreatedAt: at}
}
