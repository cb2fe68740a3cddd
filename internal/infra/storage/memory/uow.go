package memory

import (
	"context"
	"errors"
	"sync"

	"rentwheels/internal/app/outbox"
	"rentwheels/internal/app/uow"
	domainbooking "rentwheels/internal/domain/booking"
	domaincars "rentwheels/internal/domain/cars"
)

var (
	// ErrFactoryMisconfigured indicates a factory without a store.
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrUnitClosed           = errors.New("memory: unit of work already finished")
	ErrReadOnlyUnit         = errors.New("memory: write in read-only unit of work")
)

// RetryableCommitError reports commit failures caused by a unit that committed
// first. Rerunning the command lets it observe the winner's writes.
func RetryableCommitError(err error) bool {
	return errors.Is(err, domainbooking.ErrIntervalTaken) ||
		errors.Is(err, domainbooking.ErrConcurrentUpdate) ||
		errors.Is(err, domaincars.ErrConcurrentUpdate)
}

// Factory opens units over a shared Store.
type Factory struct {
	Store *Store
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		store:    f.Store,
		readOnly: opts.ReadOnly,
		cars:     make(map[domaincars.ID]int),
		bookings: make(map[domainbooking.ID]int),
	}, nil
}

type stagedCar struct {
	item     *domaincars.Car
	expected int64
}

type stagedBooking struct {
	item     *domainbooking.Booking
	expected int64
}

// Unit buffers writes until Commit. Reads see the unit's own staged writes.
type Unit struct {
	store    *Store
	readOnly bool

	mu          sync.Mutex
	done        bool
	cars        map[domaincars.ID]int
	carList     []stagedCar
	bookings    map[domainbooking.ID]int
	bookingList []stagedBooking
	records     []outbox.EventRecord
}

func (u *Unit) Cars() domaincars.Repository {
	return unitCars{u: u}
}

func (u *Unit) Bookings() domainbooking.Repository {
	return unitBookings{u: u}
}

func (u *Unit) Outbox() outbox.Outbox {
	return unitOutbox{u: u}
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	if len(u.carList) == 0 && len(u.bookingList) == 0 && len(u.records) == 0 {
		return nil
	}
	if u.readOnly {
		return ErrReadOnlyUnit
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	return u.store.apply(u.carList, u.bookingList, u.records)
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.done = true
	u.carList, u.bookingList, u.records = nil, nil, nil
	return nil
}

func (u *Unit) writable() error {
	switch {
	case u.done:
		return ErrUnitClosed
	case u.readOnly:
		return ErrReadOnlyUnit
	}
	return nil
}

type unitOutbox struct {
	u *Unit
}

func (o unitOutbox) Add(ctx context.Context, record outbox.EventRecord) error {
	o.u.mu.Lock()
	defer o.u.mu.Unlock()
	if err := o.u.writable(); err != nil {
		return err
	}
	o.u.records = append(o.u.records, record)
	return nil
}

var _ uow.UoWFactory = Factory{}
