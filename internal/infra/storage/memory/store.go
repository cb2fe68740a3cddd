package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "rentwheels/internal/app/outbox"
	domainbooking "rentwheels/internal/domain/booking"
	domaincars "rentwheels/internal/domain/cars"
	infraoutbox "rentwheels/internal/infra/outbox"
)

// Store is the in-memory record store. Units stage their writes and apply them
// atomically on commit, re-checking versions and booking exclusivity under one lock.
type Store struct {
	mu       sync.RWMutex
	cars     map[domaincars.ID]*domaincars.Car
	bookings map[domainbooking.ID]*domainbooking.Booking
	outbox   []*infraoutbox.Message
}

func NewStore() *Store {
	return &Store{
		cars:     make(map[domaincars.ID]*domaincars.Car),
		bookings: make(map[domainbooking.ID]*domainbooking.Booking),
	}
}

// SeedCar inserts or replaces a car outside any unit, e.g. from fixtures.
func (s *Store) SeedCar(car *domaincars.Car) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := car.Clone()
	if stored.Version == 0 {
		stored.Version = 1
	}
	s.cars[car.ID] = stored
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// apply validates and writes a unit's staged changes. Callers hold s.mu.
func (s *Store) apply(cars []stagedCar, bookings []stagedBooking, records []appoutbox.EventRecord) error {
	for _, c := range cars {
		if err := s.checkCarVersion(c); err != nil {
			return err
		}
	}
	for _, b := range bookings {
		if err := s.checkBookingVersion(b); err != nil {
			return err
		}
	}
	for _, b := range bookings {
		if b.item.Status().Blocking() && s.taken(b.item, bookings) {
			return domainbooking.ErrIntervalTaken
		}
	}

	for _, c := range cars {
		stored := c.item.Clone()
		stored.Version = c.expected + 1
		s.cars[stored.ID] = stored
	}
	for _, b := range bookings {
		stored := b.item.Clone()
		stored.Version = b.expected + 1
		s.bookings[stored.ID] = stored
	}
	now := time.Now().UTC()
	for _, rec := range records {
		s.outbox = append(s.outbox, &infraoutbox.Message{
			EventRecord: rec,
			State:       infraoutbox.StateNew,
			NextAttempt: now,
		})
	}
	return nil
}

func (s *Store) checkCarVersion(c stagedCar) error {
	current, ok := s.cars[c.item.ID]
	switch {
	case !ok && c.expected != 0:
		return domaincars.ErrNotFound
	case ok && current.Version != c.expected:
		return domaincars.ErrConcurrentUpdate
	}
	return nil
}

func (s *Store) checkBookingVersion(b stagedBooking) error {
	current, ok := s.bookings[b.item.ID]
	switch {
	case !ok && b.expected != 0:
		return domainbooking.ErrNotFound
	case ok && current.Version != b.expected:
		return domainbooking.ErrConcurrentUpdate
	}
	return nil
}

// taken reports whether another blocking booking of the same car overlaps b.
// Staged bookings shadow their committed versions. Callers hold s.mu.
func (s *Store) taken(b *domainbooking.Booking, staged []stagedBooking) bool {
	conflicts := func(other *domainbooking.Booking) bool {
		return other.ID != b.ID &&
			other.CarID == b.CarID &&
			other.Status().Blocking() &&
			other.Period.Range.Overlaps(b.Period.Range)
	}
	shadowed := make(map[domainbooking.ID]struct{}, len(staged))
	for _, other := range staged {
		shadowed[other.item.ID] = struct{}{}
		if conflicts(other.item) {
			return true
		}
	}
	for id, other := range s.bookings {
		if _, ok := shadowed[id]; ok {
			continue
		}
		if conflicts(other) {
			return true
		}
	}
	return false
}
