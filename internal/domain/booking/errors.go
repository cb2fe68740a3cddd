package booking

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("booking: not found")
	ErrInvalidStateTransition = errors.New("booking: invalid state transition")
	ErrAlreadyRated           = errors.New("booking: already rated")
	// ErrIntervalTaken is returned by a Repository when another blocking booking
	// of the same car overlaps the one being saved.
	ErrIntervalTaken    = errors.New("booking: interval already taken")
	ErrConcurrentUpdate = errors.New("booking: concurrent update detected")
	ErrIDRequired       = errors.New("booking: id is required")
	ErrRenterRequired   = errors.New("booking: renter is required")
	ErrCarRequired      = errors.New("booking: car is required")
)

// ErrCancellationWindowClosed rejects cancelling a confirmed booking 24 hours or less before pickup.
var ErrCancellationWindowClosed = fmt.Errorf("%w: confirmed bookings can only be cancelled more than 24 hours before pickup", ErrInvalidStateTransition)

func transitionError(op string, from Status) error {
	return fmt.Errorf("%w: cannot %s a %s booking", ErrInvalidStateTransition, op, from)
}
