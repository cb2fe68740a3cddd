// Package availability decides whether a car can be booked for an interval.
package availability

import (
	"context"
	"errors"
	"fmt"

	"rentwheels/internal/domain/booking"
	"rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/shared/daterange"
)

// ErrConflict matches every *ConflictError through errors.Is.
var ErrConflict = errors.New("availability: car is not available")

// Reason names the first failing check. Checks run in declaration order.
type Reason string

const (
	ReasonCarNotFound    Reason = "car_not_found"
	ReasonCarInactive    Reason = "car_inactive"
	ReasonCarUnavailable Reason = "car_unavailable"
	ReasonBlackout       Reason = "blackout"
	ReasonMaintenance    Reason = "maintenance"
	ReasonBooked         Reason = "booked"
)

var messages = map[Reason]string{
	ReasonCarNotFound:    "car does not exist",
	ReasonCarInactive:    "car is not active",
	ReasonCarUnavailable: "car is currently unavailable",
	ReasonBlackout:       "car is blacked out for the requested dates",
	ReasonMaintenance:    "car is in maintenance during the requested dates",
	ReasonBooked:         "car is already booked for the requested dates",
}

func (r Reason) Message() string {
	return messages[r]
}

// Result is the outcome of a check. Conflicts is only set for ReasonBooked.
type Result struct {
	Available bool
	Reason    Reason
	Conflicts []daterange.Range
}

// Err converts an unavailable result into a *ConflictError.
func (r Result) Err() error {
	if r.Available {
		return nil
	}
	return &ConflictError{Reason: r.Reason, Conflicts: r.Conflicts}
}

type ConflictError struct {
	Reason    Reason
	Conflicts []daterange.Range
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConflict.Error(), e.Reason.Message())
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// FromStoreError maps a lost exclusivity race reported by a repository or a
// commit to the conflict the checker would have reported. Other errors pass through.
func FromStoreError(err error) error {
	if errors.Is(err, booking.ErrIntervalTaken) {
		return &ConflictError{Reason: ReasonBooked}
	}
	return err
}

// Evaluate runs every check against already loaded data. car may be nil.
// Bookings that are not blocking, or whose id equals exclude, are ignored.
func Evaluate(car *cars.Car, requested daterange.Range, bookings []*booking.Booking, exclude booking.ID) Result {
	switch {
	case car == nil:
		return Result{Reason: ReasonCarNotFound}
	case car.Status != cars.StatusActive:
		return Result{Reason: ReasonCarInactive}
	case !car.Available:
		return Result{Reason: ReasonCarUnavailable}
	case overlapsAny(car.Blackouts, requested):
		return Result{Reason: ReasonBlackout}
	case overlapsAny(car.Maintenance, requested):
		return Result{Reason: ReasonMaintenance}
	}
	var conflicts []daterange.Range
	for _, b := range bookings {
		if b == nil || b.CarID != car.ID || !b.Status().Blocking() {
			continue
		}
		if exclude != "" && b.ID == exclude {
			continue
		}
		if b.Period.Range.Overlaps(requested) {
			conflicts = append(conflicts, b.Period.Range)
		}
	}
	if len(conflicts) > 0 {
		return Result{Reason: ReasonBooked, Conflicts: conflicts}
	}
	return Result{Available: true}
}

func overlapsAny(windows []cars.Window, requested daterange.Range) bool {
	for _, w := range windows {
		if w.Range.Overlaps(requested) {
			return true
		}
	}
	return false
}

// Checker loads a car and its overlapping bookings before evaluating them.
type Checker struct {
	Cars     cars.Repository
	Bookings booking.Repository
}

func (c Checker) Check(ctx context.Context, carID cars.ID, requested daterange.Range, exclude booking.ID) (*cars.Car, Result, error) {
	car, err := c.Cars.ByID(ctx, carID)
	if err != nil {
		if errors.Is(err, cars.ErrNotFound) {
			return nil, Evaluate(nil, requested, nil, exclude), nil
		}
		return nil, Result{}, err
	}
	overlapping, err := c.Bookings.Overlapping(ctx, car.ID, requested, exclude)
	if err != nil {
		return nil, Result{}, err
	}
	return car, Evaluate(car, requested, overlapping, exclude), nil
}
