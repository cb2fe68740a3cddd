package memory

import (
	"context"
	"slices"
	"sort"

	domainbooking "rentwheels/internal/domain/booking"
	domaincars "rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/shared/daterange"
)

type unitBookings struct {
	u *Unit
}

func (r unitBookings) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if idx, ok := r.u.bookings[id]; ok {
		return r.u.bookingList[idx].item.Clone(), nil
	}
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	b, ok := r.u.store.bookings[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return b.Clone(), nil
}

// Save stages b after checking its version and, for blocking bookings, that no
// other blocking booking of the car overlaps it. Commit repeats both checks
// under the store lock, so concurrent units cannot both win an interval.
func (r unitBookings) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if err := r.u.writable(); err != nil {
		return err
	}

	idx, restage := r.u.bookings[b.ID]
	entry := stagedBooking{item: b.Clone(), expected: b.Version}
	if restage {
		if r.u.bookingList[idx].item.Version != b.Version {
			return domainbooking.ErrConcurrentUpdate
		}
		entry.expected = r.u.bookingList[idx].expected
	}
	staged := slices.Clone(r.u.bookingList)
	if restage {
		staged[idx] = entry
	} else {
		staged = append(staged, entry)
	}

	r.u.store.mu.RLock()
	err := r.u.store.checkBookingVersion(entry)
	if err == nil && b.Status().Blocking() && r.u.store.taken(b, staged) {
		err = domainbooking.ErrIntervalTaken
	}
	r.u.store.mu.RUnlock()
	if err != nil {
		return err
	}

	if !restage {
		b.Version++
		entry.item.Version = b.Version
		r.u.bookings[b.ID] = len(r.u.bookingList)
		r.u.bookingList = append(r.u.bookingList, entry)
		return nil
	}
	r.u.bookingList[idx] = entry
	return nil
}

func (r unitBookings) Overlapping(ctx context.Context, car domaincars.ID, rng daterange.Range, exclude domainbooking.ID) ([]*domainbooking.Booking, error) {
	out := r.filter(func(b *domainbooking.Booking) bool {
		return b.CarID == car && b.ID != exclude && b.Status().Blocking() && b.Period.Range.Overlaps(rng)
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Period.Range.Start.Before(out[j].Period.Range.Start)
	})
	return out, nil
}

func (r unitBookings) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool {
		return b.RenterID == renterID
	}), nil
}

func (r unitBookings) ListByCars(ctx context.Context, carIDs []domaincars.ID) ([]*domainbooking.Booking, error) {
	wanted := make(map[domaincars.ID]struct{}, len(carIDs))
	for _, id := range carIDs {
		wanted[id] = struct{}{}
	}
	return r.filter(func(b *domainbooking.Booking) bool {
		_, ok := wanted[b.CarID]
		return ok
	}), nil
}

// filter returns clones of matching bookings, staged versions shadowing committed ones.
func (r unitBookings) filter(keep func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()

	out := make([]*domainbooking.Booking, 0)
	for id, b := range r.u.store.bookings {
		if _, staged := r.u.bookings[id]; staged {
			continue
		}
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	for _, entry := range r.u.bookingList {
		if keep(entry.item) {
			out = append(out, entry.item.Clone())
		}
	}
	return out
}

var _ domainbooking.Repository = unitBookings{}
