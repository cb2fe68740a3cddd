package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/pricing"
	"rentwheels/internal/domain/shared/money"
	"rentwheels/internal/domain/shared/validation"
)

func validDraft() Draft {
	loc := Location{Address: "1 Main St", City: "Austin", Country: "US"}
	return Draft{
		Schedule: Schedule{StartDate: "2025-01-10", StartTime: "10:00", EndDate: "2025-01-12", EndTime: "10:00"},
		Pickup:   loc,
		Dropoff:  loc,
		Driver: DriverDetails{
			LicenseNumber: "D123",
			LicenseExpiry: now.AddDate(1, 0, 0),
		},
		PaymentMethod: "card",
	}
}

// bookingStartingIn builds a booking whose pickup is the given offset after now.
func bookingStartingIn(t *testing.T, offset time.Duration, phase Phase) *Booking {
	t.Helper()
	start := now.Add(offset)
	period := Period{}
	period.Range.Start = start
	period.Range.End = start.Add(48 * time.Hour)
	period.Duration = pricing.Duration{Hours: 48, Days: 2}
	b, err := New(CreateParams{
		ID:       "b-1",
		RenterID: "renter",
		CarID:    cars.ID("car-1"),
		Draft:    validDraft(),
		Period:   period,
		Price:    pricing.Breakdown{Total: money.Must(71800, "USD")},
		Now:      now,
	})
	require.NoError(t, err)
	b.phase = phase
	b.ClearEvents()
	return b
}

func TestDraftValidateAggregatesAllProblems(t *testing.T) {
	d := validDraft()
	d.Schedule.StartTime = "25:00"
	d.Driver.LicenseExpiry = now.Add(29 * 24 * time.Hour)
	d.Pickup.City = ""
	d.Dropoff = Location{}
	d.Insurance = "gold"

	_, _, err := d.Validate(now, time.UTC)
	require.Equal(t, []string{
		"startTime must be HH:MM between 00:00 and 23:59",
		"driver license must be valid for more than 30 days",
		"pickupLocation.city is required",
		"dropoffLocation.address is required",
		"dropoffLocation.city is required",
		"dropoffLocation.country is required",
		"insuranceType must be one of basic, comprehensive, premium",
	}, problemsOf(t, err))
}

func TestDraftValidateDefaultsToBasicCover(t *testing.T) {
	period, tier, err := validDraft().Validate(now, time.UTC)
	require.NoError(t, err)
	require.Equal(t, pricing.TierBasic, tier)
	require.Equal(t, 48, period.Duration.Hours)
}

func TestLicenseExpiryIsMeasuredFromNow(t *testing.T) {
	d := validDraft()
	d.Driver.LicenseExpiry = now.Add(LicenseValidity)
	_, _, err := d.Validate(now, time.UTC)
	require.Equal(t, []string{"driver license must be valid for more than 30 days"}, problemsOf(t, err))

	d.Driver.LicenseExpiry = now.Add(LicenseValidity + time.Minute)
	_, _, err = d.Validate(now, time.UTC)
	require.NoError(t, err)
}

func TestCancelRefunds(t *testing.T) {
	tests := []struct {
		name       string
		startIn    time.Duration
		phase      Phase
		wantPct    int
		wantRefund int64
		wantErr    error
	}{
		{name: "fifty hours full refund", startIn: 50 * time.Hour, phase: Pending{}, wantPct: 100, wantRefund: 71800},
		{name: "thirty hours half refund", startIn: 30 * time.Hour, phase: Pending{}, wantPct: 50, wantRefund: 35900},
		{name: "ten hours pending no refund", startIn: 10 * time.Hour, phase: Pending{}, wantPct: 0, wantRefund: 0},
		{name: "confirmed with thirty hours", startIn: 30 * time.Hour, phase: Confirmed{}, wantPct: 50, wantRefund: 35900},
		{name: "confirmed with ten hours is rejected", startIn: 10 * time.Hour, phase: Confirmed{}, wantErr: ErrCancellationWindowClosed},
		{name: "confirmed with exactly 24 hours is rejected", startIn: 24 * time.Hour, phase: Confirmed{}, wantErr: ErrCancellationWindowClosed},
		{name: "active is rejected", startIn: 50 * time.Hour, phase: Active{}, wantErr: ErrInvalidStateTransition},
		{name: "completed is rejected", startIn: 50 * time.Hour, phase: Completed{}, wantErr: ErrInvalidStateTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bookingStartingIn(t, tt.startIn, tt.phase)
			c, err := b.Cancel("plans changed", "renter", now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Equal(t, tt.phase.Status(), b.Status())
				require.Empty(t, b.PendingEvents())
				return
			}
			require.NoError(t, err)
			require.Equal(t, StatusCancelled, b.Status())
			require.Equal(t, tt.wantPct, c.RefundPercent)
			require.Equal(t, tt.wantRefund, c.Refund.Amount)
			recorded, ok := b.Cancellation()
			require.True(t, ok)
			require.Equal(t, "renter", recorded.By)
			require.Len(t, b.PendingEvents(), 1)
		})
	}
}

func TestCancelledBookingStaysCancelled(t *testing.T) {
	b := bookingStartingIn(t, 72*time.Hour, Pending{})
	_, err := b.Cancel("", "renter", now)
	require.NoError(t, err)
	require.Equal(t, PaymentRefundDue, b.PaymentStatus)

	_, err = b.Cancel("", "renter", now)
	require.ErrorIs(t, err, ErrInvalidStateTransition)
	require.ErrorIs(t, b.Confirm("owner", now), ErrInvalidStateTransition)
}

func TestForwardLifecycle(t *testing.T) {
	b := bookingStartingIn(t, 72*time.Hour, Pending{})

	require.ErrorIs(t, b.Activate(Handover{At: now}), ErrInvalidStateTransition)
	require.NoError(t, b.Confirm("owner", now))
	require.Equal(t, StatusConfirmed, b.Status())
	require.ErrorIs(t, b.Confirm("owner", now), ErrInvalidStateTransition)

	require.NoError(t, b.Activate(Handover{At: now, By: "owner", Mileage: 1000, FuelLevel: 100}))
	require.Equal(t, StatusActive, b.Status())
	require.ErrorIs(t, b.Editable(), ErrInvalidStateTransition)

	err := b.Complete(Handover{At: now, By: "owner", Mileage: 900, FuelLevel: 120}, Inspection{})
	require.Equal(t, []string{
		"return fuel level must be between 0 and 100",
		"return mileage cannot be lower than pickup mileage",
	}, problemsOf(t, err))

	require.NoError(t, b.Complete(Handover{At: now, By: "owner", Mileage: 1350, FuelLevel: 75}, Inspection{Notes: " clean ", Damages: []string{"scratch", " "}}))
	done, ok := b.Completion()
	require.True(t, ok)
	require.Equal(t, 1000, done.Pickup.Mileage)
	require.Equal(t, 1350, done.Return.Mileage)
	require.Equal(t, "owner", done.Inspection.Inspector)
	require.Equal(t, []string{"scratch"}, done.Inspection.Damages)
	require.Equal(t, "clean", done.Inspection.Notes)
}

func TestRateOnlyOnceAfterCompletion(t *testing.T) {
	b := bookingStartingIn(t, 72*time.Hour, Confirmed{})
	_, err := b.Rate(5, 5, "", now)
	require.ErrorIs(t, err, ErrInvalidStateTransition)

	b.phase = Completed{}
	_, err = b.Rate(0, 6, "", now)
	require.Equal(t, []string{
		"carRating must be an integer between 1 and 5",
		"serviceRating must be an integer between 1 and 5",
	}, problemsOf(t, err))

	r, err := b.Rate(4, 5, " great ", now)
	require.NoError(t, err)
	require.Equal(t, "great", r.Comment)

	_, err = b.Rate(5, 5, "", now)
	require.ErrorIs(t, err, ErrAlreadyRated)
	stored, ok := b.Rating()
	require.True(t, ok)
	require.Equal(t, 4, stored.Car)
}

func TestApplyReschedulesOnlyEditableBookings(t *testing.T) {
	b := bookingStartingIn(t, 72*time.Hour, Confirmed{})
	period := b.Period
	period.Range.End = period.Range.End.Add(24 * time.Hour)
	price := pricing.Breakdown{Total: money.Must(90000, "USD")}
	method := "cash"

	require.NoError(t, b.Apply(Changes{PaymentMethod: &method}, &period, &price, now))
	require.Equal(t, int64(90000), b.Price.Total.Amount)
	require.Equal(t, "cash", b.PaymentMethod)

	err := b.Apply(Changes{}, &period, nil, now)
	require.True(t, errors.Is(err, validation.ErrInvalid))

	b.phase = Active{}
	require.ErrorIs(t, b.Apply(Changes{PaymentMethod: &method}, nil, nil, now), ErrInvalidStateTransition)
}

func TestMarkNoShowOnlyFromBlockingStatuses(t *testing.T) {
	b := bookingStartingIn(t, 72*time.Hour, Confirmed{})
	require.NoError(t, b.MarkNoShow("admin", now))
	require.Equal(t, StatusNoShow, b.Status())
	require.True(t, b.Status().Terminal())
	require.ErrorIs(t, b.MarkNoShow("admin", now), ErrInvalidStateTransition)
}

func TestRefundPercentBoundaries(t *testing.T) {
	require.Equal(t, 100, RefundPercent(48))
	require.Equal(t, 50, RefundPercent(47.99))
	require.Equal(t, 50, RefundPercent(24))
	require.Equal(t, 0, RefundPercent(23.99))
}
