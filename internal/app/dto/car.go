package dto

import (
	"time"

	domaincars "rentwheels/internal/domain/cars"
)

type RateCard struct {
	Hourly   int64  `json:"hourly"`
	Daily    int64  `json:"daily"`
	Weekly   int64  `json:"weekly,omitempty"`
	Monthly  int64  `json:"monthly,omitempty"`
	Currency string `json:"currency"`
}

type Window struct {
	ID     string    `json:"id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Reason string    `json:"reason,omitempty"`
}

type CarRating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type Car struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"ownerId"`
	Make          string    `json:"make"`
	Model         string    `json:"model"`
	Year          int       `json:"year"`
	Category      string    `json:"category"`
	Seats         int       `json:"seats"`
	Transmission  string    `json:"transmission"`
	FuelType      string    `json:"fuelType"`
	Features      []string  `json:"features"`
	City          string    `json:"city"`
	Country       string    `json:"country"`
	Rates         RateCard  `json:"rates"`
	Available     bool      `json:"available"`
	Status        string    `json:"status"`
	Blackouts     []Window  `json:"blackouts"`
	Maintenance   []Window  `json:"maintenance"`
	Rating        CarRating `json:"rating"`
	TotalBookings int       `json:"totalBookings"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CarSummary is embedded in booking views.
type CarSummary struct {
	ID       string `json:"id"`
	OwnerID  string `json:"ownerId"`
	Make     string `json:"make"`
	Model    string `json:"model"`
	Year     int    `json:"year"`
	Category string `json:"category"`
	City     string `json:"city"`
}

type CarCollection struct {
	Items  []Car `json:"items"`
	Total  int   `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func MapCar(c *domaincars.Car) Car {
	return Car{
		ID:           string(c.ID),
		OwnerID:      c.OwnerID,
		Make:         c.Make,
		Model:        c.Model,
		Year:         c.Year,
		Category:     c.Category,
		Seats:        c.Seats,
		Transmission: c.Transmission,
		FuelType:     c.FuelType,
		Features:     append([]string{}, c.Features...),
		City:         c.Location.City,
		Country:      c.Location.Country,
		Rates: RateCard{
			Hourly:   c.Rates.Hourly,
			Daily:    c.Rates.Daily,
			Weekly:   c.Rates.Weekly,
			Monthly:  c.Rates.Monthly,
			Currency: c.Rates.Currency,
		},
		Available:     c.Available,
		Status:        string(c.Status),
		Blackouts:     MapWindows(c.Blackouts),
		Maintenance:   MapWindows(c.Maintenance),
		Rating:        CarRating{Average: c.Rating.Average, Count: c.Rating.Count},
		TotalBookings: c.TotalBookings,
		Version:       c.Version,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func MapCarSummary(c *domaincars.Car) CarSummary {
	return CarSummary{
		ID:       string(c.ID),
		OwnerID:  c.OwnerID,
		Make:     c.Make,
		Model:    c.Model,
		Year:     c.Year,
		Category: c.Category,
		City:     c.Location.City,
	}
}

func MapWindow(w domaincars.Window) Window {
	return Window{ID: w.ID, Start: w.Range.Start, End: w.Range.End, Reason: w.Reason}
}

func MapWindows(windows []domaincars.Window) []Window {
	out := make([]Window, 0, len(windows))
	for _, w := range windows {
		out = append(out, MapWindow(w))
	}
	return out
}
