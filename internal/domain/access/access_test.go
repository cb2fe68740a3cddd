package access

import (
	"testing"

	"rentwheels/internal/domain/user"
)

func TestAuthorize(t *testing.T) {
	renter := Actor{ID: "renter", Roles: []user.Role{user.RoleUser}}
	owner := Actor{ID: "owner", Roles: []user.Role{user.RoleOwner}}
	otherOwner := Actor{ID: "someone", Roles: []user.Role{user.RoleOwner}}
	admin := Actor{ID: "admin", Roles: []user.Role{user.RoleAdmin}}
	res := Resource{RenterID: "renter", CarOwnerID: "owner"}

	tests := []struct {
		action  Action
		allowed map[string]bool
	}{
		{ViewBooking, map[string]bool{"renter": true, "owner": true, "admin": true}},
		{UpdateBooking, map[string]bool{"renter": true, "admin": true}},
		{CancelBooking, map[string]bool{"renter": true, "admin": true}},
		{ConfirmBooking, map[string]bool{"owner": true, "admin": true}},
		{ActivateBooking, map[string]bool{"owner": true, "admin": true}},
		{CompleteBooking, map[string]bool{"owner": true, "admin": true}},
		{InspectBooking, map[string]bool{"owner": true, "admin": true}},
		{RateBooking, map[string]bool{"renter": true}},
		{MarkBookingNoShow, map[string]bool{"admin": true}},
		{ManageCar, map[string]bool{"owner": true, "admin": true}},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			for _, actor := range []Actor{renter, owner, otherOwner, admin} {
				err := Authorize(actor, tt.action, res)
				if tt.allowed[actor.ID] && err != nil {
					t.Errorf("%s should be allowed to %s: %v", actor.ID, tt.action, err)
				}
				if !tt.allowed[actor.ID] && err == nil {
					t.Errorf("%s should not be allowed to %s", actor.ID, tt.action)
				}
			}
		})
	}
}

func TestAuthorizeRequiresIdentity(t *testing.T) {
	if err := Authorize(Actor{}, ViewBooking, Resource{}); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestEmptyResourceNeverMatches(t *testing.T) {
	// an actor without id is rejected above; an empty renter id must not match anyone.
	actor := Actor{ID: "x"}
	if err := Authorize(actor, CancelBooking, Resource{}); err == nil {
		t.Fatal("expected forbidden for a resource without parties")
	}
}
