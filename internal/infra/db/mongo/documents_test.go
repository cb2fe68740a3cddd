package mongo

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainbooking "rentwheels/internal/domain/booking"
	domaincars "rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/pricing"
	"rentwheels/internal/domain/shared/daterange"
	"rentwheels/internal/domain/shared/money"
)

var now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestCompletedBookingSurvivesBSON(t *testing.T) {
	start := now.Add(-72 * time.Hour)
	rating := &domainbooking.Rating{Car: 4, Service: 5, Comment: "clean", At: now}
	original := domainbooking.Restore(domainbooking.Booking{
		ID:       "b-1",
		RenterID: "renter-1",
		CarID:    "car-1",
		Period: domainbooking.Period{
			Schedule: domainbooking.Schedule{StartDate: "2025-02-26", EndDate: "2025-02-28", StartTime: "09:00", EndTime: "09:00"},
			Range:    daterange.Range{Start: start, End: start.Add(48 * time.Hour)},
			Duration: pricing.Duration{Hours: 48, Days: 2},
		},
		Price: pricing.Breakdown{
			Base:  money.Must(17800, "USD"),
			Total: money.Must(21580, "USD"),
			Tier:  pricing.TierBasic,
			Units: pricing.Units{Days: 2},
		},
		Pickup:        domainbooking.Location{Address: "1 Main St", City: "Austin", Country: "US", Coordinates: &domainbooking.Coordinates{Lat: 30.2, Lng: -97.7}},
		Dropoff:       domainbooking.Location{Address: "1 Main St", City: "Austin", Country: "US"},
		PaymentMethod: "card",
		Driver:        domainbooking.DriverDetails{LicenseNumber: "D1", LicenseExpiry: now.AddDate(2, 0, 0)},
		PaymentStatus: domainbooking.PaymentPaid,
		CreatedAt:     start.Add(-24 * time.Hour),
		UpdatedAt:     now,
		Version:       5,
	}, domainbooking.Completed{
		Pickup:     domainbooking.Handover{At: start, By: "owner-1", Mileage: 1000, FuelLevel: 100},
		Return:     domainbooking.Handover{At: start.Add(48 * time.Hour), By: "owner-1", Mileage: 1250, FuelLevel: 80},
		Inspection: domainbooking.Inspection{Damages: []string{"scratch"}, Photos: []string{}, Inspector: "owner-1", At: start.Add(48 * time.Hour)},
		Rating:     rating,
	})

	raw, err := bson.Marshal(newBookingDocument(original))
	require.NoError(t, err)
	var doc bookingDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	restored, err := doc.toAggregate()
	require.NoError(t, err)

	require.Equal(t, domainbooking.StatusCompleted, restored.Status())
	require.Equal(t, original.Period, restored.Period)
	require.Equal(t, original.Price, restored.Price)
	require.Equal(t, original.Pickup, restored.Pickup)
	got, ok := restored.Rating()
	require.True(t, ok)
	require.Equal(t, *rating, got)
	done, _ := restored.Completion()
	require.Equal(t, 1250, done.Return.Mileage)
	require.Equal(t, []string{"scratch"}, done.Inspection.Damages)
}

func TestBookingDocumentRejectsInconsistentPhase(t *testing.T) {
	doc := bookingDocument{ID: "b-1", Status: string(domainbooking.StatusCancelled)}
	_, err := doc.toAggregate()
	require.ErrorContains(t, err, "cancellation")

	doc.Status = "archived"
	_, err = doc.toAggregate()
	require.Error(t, err)
}

func TestSearchFilterMirrorsCatalogParams(t *testing.T) {
	params := domaincars.SearchParams{
		City:          " Austin ",
		OnlyActive:    true,
		MinSeats:      4,
		PriceMinCents: 5000,
		PriceMaxCents: 9000,
	}.Normalized()

	require.Equal(t, bson.M{
		"city_key":    "austin",
		"status":      "active",
		"available":   true,
		"seats":       bson.M{"$gte": 4},
		"rates.daily": bson.M{"$gte": int64(5000), "$lte": int64(9000)},
	}, searchFilter(params))
}

func TestOverlapFilterIsInclusiveAndSkipsExcluded(t *testing.T) {
	rng := daterange.Range{Start: now, End: now.Add(time.Hour)}
	filter := overlapFilter("car-1", rng, "b-9")

	require.Equal(t, bson.M{"$lte": rng.End}, filter["range.start"])
	require.Equal(t, bson.M{"$gte": rng.Start}, filter["range.end"])
	require.Equal(t, bson.M{"$ne": "b-9"}, filter["_id"])
	require.Equal(t, bson.M{"$in": []string{"pending", "confirmed", "active"}}, filter["status"])
}

func TestRetryableTxnError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "transient", err: mongo.CommandError{Code: 112, Labels: []string{"TransientTransactionError"}}, want: true},
		{name: "unknown commit", err: fmt.Errorf("commit: %w", mongo.CommandError{Labels: []string{"UnknownTransactionCommitResult"}}), want: true},
		{name: "plain command error", err: mongo.CommandError{Code: 2}},
		{name: "other", err: errors.New("boom")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, RetryableTxnError(tc.err))
		})
	}
}
