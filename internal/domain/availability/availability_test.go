package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rentwheels/internal/domain/booking"
	"rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/shared/daterange"
)

func day(d int, hour int) time.Time {
	return time.Date(2025, time.January, d, hour, 0, 0, 0, time.UTC)
}

func span(from, to time.Time) daterange.Range {
	return daterange.Range{Start: from, End: to}
}

func activeCar() *cars.Car {
	return &cars.Car{ID: "car-1", OwnerID: "owner", Status: cars.StatusActive, Available: true}
}

func bookingOn(id string, r daterange.Range, phase booking.Phase) *booking.Booking {
	return booking.Restore(booking.Booking{ID: booking.ID(id), CarID: "car-1", Period: booking.Period{Range: r}}, phase)
}

func TestBlackoutBoundaries(t *testing.T) {
	car := activeCar()
	car.Blackouts = []cars.Window{{ID: "w1", Range: span(day(10, 0), day(15, 0)), Reason: "owner trip"}}

	tests := []struct {
		name      string
		requested daterange.Range
		available bool
	}{
		{name: "overlapping tail", requested: span(day(14, 0), day(16, 0)), available: false},
		{name: "after blackout end", requested: span(day(16, 0), day(20, 0)), available: true},
		{name: "start touches blackout end", requested: span(day(15, 0), day(17, 0)), available: false},
		{name: "end touches blackout start", requested: span(day(8, 0), day(10, 0)), available: false},
		{name: "before blackout", requested: span(day(5, 0), day(9, 23)), available: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(car, tt.requested, nil, "")
			require.Equal(t, tt.available, res.Available)
			if !tt.available {
				require.Equal(t, ReasonBlackout, res.Reason)
			}
		})
	}
}

func TestReasonOrdering(t *testing.T) {
	requested := span(day(10, 10), day(12, 10))
	conflicting := []*booking.Booking{bookingOn("b1", span(day(11, 0), day(13, 0)), booking.Confirmed{})}
	window := []cars.Window{{ID: "w", Range: span(day(9, 0), day(20, 0))}}

	tests := []struct {
		name   string
		car    *cars.Car
		reason Reason
	}{
		{name: "missing car", car: nil, reason: ReasonCarNotFound},
		{name: "inactive beats everything else", car: &cars.Car{ID: "car-1", Status: cars.StatusInactive, Available: false, Blackouts: window}, reason: ReasonCarInactive},
		{name: "flag beats windows", car: &cars.Car{ID: "car-1", Status: cars.StatusActive, Available: false, Blackouts: window}, reason: ReasonCarUnavailable},
		{name: "blackout beats maintenance", car: &cars.Car{ID: "car-1", Status: cars.StatusActive, Available: true, Blackouts: window, Maintenance: window}, reason: ReasonBlackout},
		{name: "maintenance beats bookings", car: &cars.Car{ID: "car-1", Status: cars.StatusActive, Available: true, Maintenance: window}, reason: ReasonMaintenance},
		{name: "bookings last", car: activeCar(), reason: ReasonBooked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(tt.car, requested, conflicting, "")
			require.False(t, res.Available)
			require.Equal(t, tt.reason, res.Reason)
			if tt.reason == ReasonBooked {
				require.Equal(t, []daterange.Range{conflicting[0].Period.Range}, res.Conflicts)
			} else {
				require.Empty(t, res.Conflicts)
			}
		})
	}
}

func TestOnlyBlockingBookingsConflict(t *testing.T) {
	r := span(day(10, 10), day(12, 10))
	car := activeCar()
	for _, phase := range []booking.Phase{booking.Completed{}, booking.Cancelled{}, booking.NoShow{}} {
		res := Evaluate(car, r, []*booking.Booking{bookingOn("b", r, phase)}, "")
		require.True(t, res.Available, "status %s must not conflict", phase.Status())
	}
	for _, phase := range []booking.Phase{booking.Pending{}, booking.Confirmed{}, booking.Active{}} {
		res := Evaluate(car, r, []*booking.Booking{bookingOn("b", r, phase)}, "")
		require.False(t, res.Available, "status %s must conflict", phase.Status())
	}
}

func TestTouchingBookingsConflict(t *testing.T) {
	existing := bookingOn("b1", span(day(10, 10), day(12, 10)), booking.Pending{})
	res := Evaluate(activeCar(), span(day(12, 10), day(13, 10)), []*booking.Booking{existing}, "")
	require.Equal(t, ReasonBooked, res.Reason)
}

func TestExcludedBookingDoesNotConflictWithItself(t *testing.T) {
	existing := bookingOn("b1", span(day(10, 10), day(12, 10)), booking.Confirmed{})
	res := Evaluate(activeCar(), span(day(11, 10), day(13, 10)), []*booking.Booking{existing}, "b1")
	require.True(t, res.Available)
}

func TestConflictError(t *testing.T) {
	res := Result{Reason: ReasonMaintenance}
	err := res.Err()
	require.True(t, errors.Is(err, ErrConflict))
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	require.Equal(t, ReasonMaintenance, conflict.Reason)
	require.Contains(t, err.Error(), "maintenance")
	require.NoError(t, Result{Available: true}.Err())
}
