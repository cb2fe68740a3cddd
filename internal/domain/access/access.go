// Package access holds the single capability check used by every booking and car mutation.
package access

import (
	"errors"
	"fmt"

	"rentwheels/internal/domain/user"
)

var (
	ErrUnauthenticated = errors.New("access: authentication required")
	ErrForbidden       = errors.New("access: forbidden")
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID    string
	Roles []user.Role
}

func (a Actor) Authenticated() bool {
	return a.ID != ""
}

func (a Actor) Has(role user.Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool {
	return a.Has(user.RoleAdmin)
}

type Action string

const (
	ViewBooking       Action = "booking.view"
	UpdateBooking     Action = "booking.update"
	CancelBooking     Action = "booking.cancel"
	ConfirmBooking    Action = "booking.confirm"
	ActivateBooking   Action = "booking.activate"
	CompleteBooking   Action = "booking.complete"
	InspectBooking    Action = "booking.inspect"
	RateBooking       Action = "booking.rate"
	MarkBookingNoShow Action = "booking.no_show"
	ManageCar         Action = "car.manage"
)

// Resource names the parties attached to the target of an action.
type Resource struct {
	RenterID   string
	CarOwnerID string
}

type grant struct {
	renter   bool
	carOwner bool
	admin    bool
}

var grants = map[Action]grant{
	ViewBooking:       {renter: true, carOwner: true, admin: true},
	UpdateBooking:     {renter: true, admin: true},
	CancelBooking:     {renter: true, admin: true},
	ConfirmBooking:    {carOwner: true, admin: true},
	ActivateBooking:   {carOwner: true, admin: true},
	CompleteBooking:   {carOwner: true, admin: true},
	InspectBooking:    {carOwner: true, admin: true},
	RateBooking:       {renter: true},
	MarkBookingNoShow: {admin: true},
	ManageCar:         {carOwner: true, admin: true},
}

// Authorize returns nil when actor may perform action on res.
func Authorize(actor Actor, action Action, res Resource) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	g, ok := grants[action]
	if !ok {
		return fmt.Errorf("%w: unknown action %s", ErrForbidden, action)
	}
	switch {
	case g.admin && actor.IsAdmin():
		return nil
	case g.renter && res.RenterID != "" && actor.ID == res.RenterID:
		return nil
	case g.carOwner && res.CarOwnerID != "" && actor.ID == res.CarOwnerID:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrForbidden, action)
}
