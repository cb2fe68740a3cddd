package cars

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentwheels/internal/domain/shared/daterange"
	"rentwheels/internal/domain/shared/events"
)

var (
	ErrNotFound         = errors.New("cars: car not found")
	ErrIDRequired       = errors.New("cars: id is required")
	ErrOwnerRequired    = errors.New("cars: owner is required")
	ErrInvalidStatus    = errors.New("cars: invalid status")
	ErrInvalidRates     = errors.New("cars: hourly and daily rates must be positive")
	ErrInvalidCurrency  = errors.New("cars: rate currency must be a 3-letter code")
	ErrWindowNotFound   = errors.New("cars: window not found")
	ErrInvalidWindow    = errors.New("cars: window end must not precede start")
	ErrInvalidRating    = errors.New("cars: rating must be between 1 and 5")
	ErrConcurrentUpdate = errors.New("cars: concurrent update detected")
)

type ID string

type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusMaintenance Status = "maintenance"
	StatusRented      Status = "rented"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusActive, StatusInactive, StatusMaintenance, StatusRented:
		return s, nil
	}
	return "", ErrInvalidStatus
}

// RateCard lists prices in minor units. Weekly and Monthly are optional.
type RateCard struct {
	Hourly   int64
	Daily    int64
	Weekly   int64
	Monthly  int64
	Currency string
}

func (rc RateCard) Validate() error {
	if rc.Hourly <= 0 || rc.Daily <= 0 || rc.Weekly < 0 || rc.Monthly < 0 {
		return ErrInvalidRates
	}
	if len(strings.TrimSpace(rc.Currency)) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}

// Window is an owner-declared period during which the car cannot be booked.
type Window struct {
	ID     string
	Range  daterange.Range
	Reason string
}

// Rating is the running average of renters' car scores.
type Rating struct {
	Average float64
	Count   int
}

// With folds one more score into the running average.
func (r Rating) With(score int) Rating {
	total := r.Average*float64(r.Count) + float64(score)
	return Rating{Average: total / float64(r.Count+1), Count: r.Count + 1}
}

type Location struct {
	City    string
	Country string
}

type Car struct {
	ID            ID
	OwnerID       string
	Make          string
	Model         string
	Year          int
	Category      string
	Seats         int
	Transmission  string
	FuelType      string
	Features      []string
	Location      Location
	Rates         RateCard
	Available     bool
	Status        Status
	Blackouts     []Window
	Maintenance   []Window
	Rating        Rating
	TotalBookings int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64

	events.Recorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Car, error)
	Save(ctx context.Context, car *Car) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}

type CreateParams struct {
	ID           ID
	OwnerID      string
	Make         string
	Model        string
	Year         int
	Category     string
	Seats        int
	Transmission string
	FuelType     string
	Features     []string
	Location     Location
	Rates        RateCard
	Now          time.Time
}

// NewCar builds an active, available car.
func NewCar(params CreateParams) (*Car, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(params.OwnerID) == "" {
		return nil, ErrOwnerRequired
	}
	rates := params.Rates
	rates.Currency = strings.ToUpper(strings.TrimSpace(rates.Currency))
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	return &Car{
		ID:           params.ID,
		OwnerID:      params.OwnerID,
		Make:         strings.TrimSpace(params.Make),
		Model:        strings.TrimSpace(params.Model),
		Year:         params.Year,
		Category:     strings.ToLower(strings.TrimSpace(params.Category)),
		Seats:        params.Seats,
		Transmission: strings.ToLower(strings.TrimSpace(params.Transmission)),
		FuelType:     strings.ToLower(strings.TrimSpace(params.FuelType)),
		Features:     append([]string(nil), params.Features...),
		Location:     params.Location,
		Rates:        rates,
		Available:    true,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (c *Car) AddBlackout(r daterange.Range, reason string, now time.Time) (Window, error) {
	w, err := newWindow(r, reason)
	if err != nil {
		return Window{}, err
	}
	c.Blackouts = append(c.Blackouts, w)
	c.touch(now)
	c.Record(WindowChanged{Meta: events.NewMeta(EventBlackoutAdded, string(c.ID), now), WindowID: w.ID, Start: w.Range.Start, End: w.Range.End, Reason: w.Reason})
	return w, nil
}

func (c *Car) RemoveBlackout(id string, now time.Time) error {
	kept, removed, ok := without(c.Blackouts, id)
	if !ok {
		return ErrWindowNotFound
	}
	c.Blackouts = kept
	c.touch(now)
	c.Record(WindowChanged{Meta: events.NewMeta(EventBlackoutRemoved, string(c.ID), now), WindowID: id, Start: removed.Range.Start, End: removed.Range.End, Reason: removed.Reason})
	return nil
}

func (c *Car) AddMaintenance(r daterange.Range, reason string, now time.Time) (Window, error) {
	w, err := newWindow(r, reason)
	if err != nil {
		return Window{}, err
	}
	c.Maintenance = append(c.Maintenance, w)
	c.touch(now)
	c.Record(WindowChanged{Meta: events.NewMeta(EventMaintenanceAdded, string(c.ID), now), WindowID: w.ID, Start: w.Range.Start, End: w.Range.End, Reason: w.Reason})
	return w, nil
}

func (c *Car) RemoveMaintenance(id string, now time.Time) error {
	kept, removed, ok := without(c.Maintenance, id)
	if !ok {
		return ErrWindowNotFound
	}
	c.Maintenance = kept
	c.touch(now)
	c.Record(WindowChanged{Meta: events.NewMeta(EventMaintenanceRemoved, string(c.ID), now), WindowID: id, Start: removed.Range.Start, End: removed.Range.End, Reason: removed.Reason})
	return nil
}

// SetAvailability updates the global flag and lifecycle status in one step.
func (c *Car) SetAvailability(available bool, status Status, now time.Time) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	c.Available = available
	c.Status = status
	c.touch(now)
	c.Record(AvailabilityChanged{Meta: events.NewMeta(EventAvailabilityChanged, string(c.ID), now), Available: available, Status: string(status)})
	return nil
}

// RecordCompletedBooking bumps the completed-bookings counter.
func (c *Car) RecordCompletedBooking(now time.Time) {
	c.TotalBookings++
	c.touch(now)
}

// ApplyRating folds a renter's score into the car's aggregate rating.
func (c *Car) ApplyRating(score int, now time.Time) error {
	if score < 1 || score > 5 {
		return ErrInvalidRating
	}
	c.Rating = c.Rating.With(score)
	c.touch(now)
	c.Record(Rated{Meta: events.NewMeta(EventRated, string(c.ID), now), Score: score, Average: c.Rating.Average, Count: c.Rating.Count})
	return nil
}

// Clone returns a deep copy without pending events.
func (c *Car) Clone() *Car {
	if c == nil {
		return nil
	}
	out := *c
	out.Features = append([]string(nil), c.Features...)
	out.Blackouts = append([]Window(nil), c.Blackouts...)
	out.Maintenance = append([]Window(nil), c.Maintenance...)
	out.Recorder = events.Recorder{}
	return &out
}

func (c *Car) touch(now time.Time) {
	c.UpdatedAt = now.UTC()
}

func newWindow(r daterange.Range, reason string) (Window, error) {
	if r.End.Before(r.Start) {
		return Window{}, ErrInvalidWindow
	}
	return Window{ID: uuid.NewString(), Range: r, Reason: strings.TrimSpace(reason)}, nil
}

func without(windows []Window, id string) ([]Window, Window, bool) {
	for i, w := range windows {
		if w.ID == id {
			kept := append(append([]Window(nil), windows[:i]...), windows[i+1:]...)
			return kept, w, true
		}
	}
	return windows, Window{}, false
}
