package booking

import (
	"context"
	"strings"
	"time"

	"rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/pricing"
	"rentwheels/internal/domain/shared/daterange"
	"rentwheels/internal/domain/shared/events"
	"rentwheels/internal/domain/shared/validation"
)

type ID string

// Booking is the aggregate root of a single rental. Its status lives in phase.
type Booking struct {
	ID              ID
	RenterID        string
	CarID           cars.ID
	Period          Period
	Price           pricing.Breakdown
	Pickup          Location
	Dropoff         Location
	PaymentMethod   string
	Driver          DriverDetails
	SpecialRequests string
	PaymentStatus   PaymentStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64

	phase Phase
	events.Recorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Booking, error)
	// Save persists b with optimistic versioning. When b is blocking, Save fails
	// with ErrIntervalTaken if another blocking booking of the same car overlaps;
	// the check and the write are atomic.
	Save(ctx context.Context, b *Booking) error
	// Overlapping lists blocking bookings of car that overlap r, skipping exclude.
	Overlapping(ctx context.Context, car cars.ID, r daterange.Range, exclude ID) ([]*Booking, error)
	ListByRenter(ctx context.Context, renterID string) ([]*Booking, error)
	ListByCars(ctx context.Context, carIDs []cars.ID) ([]*Booking, error)
}

type CreateParams struct {
	ID       ID
	RenterID string
	CarID    cars.ID
	Draft    Draft
	Period   Period
	Price    pricing.Breakdown
	Now      time.Time
}

// New creates a pending booking from an already validated and priced draft.
func New(p CreateParams) (*Booking, error) {
	switch {
	case strings.TrimSpace(string(p.ID)) == "":
		return nil, ErrIDRequired
	case strings.TrimSpace(p.RenterID) == "":
		return nil, ErrRenterRequired
	case strings.TrimSpace(string(p.CarID)) == "":
		return nil, ErrCarRequired
	}
	now := p.Now.UTC()
	b := &Booking{
		ID:              p.ID,
		RenterID:        p.RenterID,
		CarID:           p.CarID,
		Period:          p.Period,
		Price:           p.Price,
		Pickup:          p.Draft.Pickup,
		Dropoff:         p.Draft.Dropoff,
		PaymentMethod:   strings.TrimSpace(p.Draft.PaymentMethod),
		Driver:          p.Draft.Driver,
		SpecialRequests: strings.TrimSpace(p.Draft.SpecialRequests),
		PaymentStatus:   PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		phase:           Pending{},
	}
	b.Record(Created{
		Meta:     events.NewMeta(EventCreated, string(b.ID), now),
		RenterID: b.RenterID,
		CarID:    string(b.CarID),
		Start:    b.Period.Range.Start,
		End:      b.Period.Range.End,
		Total:    b.Price.Total,
	})
	return b, nil
}

// Restore rebuilds a booking loaded from storage.
func Restore(b Booking, phase Phase) *Booking {
	if phase == nil {
		phase = Pending{}
	}
	b.phase = phase
	b.Recorder = events.Recorder{}
	return &b
}

func (b *Booking) Status() Status { return b.phase.Status() }

func (b *Booking) Phase() Phase { return b.phase }

func (b *Booking) Cancellation() (Cancellation, bool) {
	c, ok := b.phase.(Cancelled)
	return c.Cancellation, ok
}

func (b *Booking) Completion() (Completed, bool) {
	c, ok := b.phase.(Completed)
	return c, ok
}

func (b *Booking) Rating() (Rating, bool) {
	c, ok := b.phase.(Completed)
	if !ok || c.Rating == nil {
		return Rating{}, false
	}
	return *c.Rating, true
}

// HoursUntilStart is the fractional number of hours between at and pickup.
func (b *Booking) HoursUntilStart(at time.Time) float64 {
	return b.Period.Range.Start.Sub(at).Hours()
}

// Editable reports whether the renter may still change the booking.
func (b *Booking) Editable() error {
	switch b.Status() {
	case StatusPending, StatusConfirmed:
		return nil
	}
	return transitionError("update", b.Status())
}

// Apply stores validated changes. A non-nil period must come with its new price.
func (b *Booking) Apply(c Changes, period *Period, price *pricing.Breakdown, now time.Time) error {
	if err := b.Editable(); err != nil {
		return err
	}
	rescheduled := period != nil
	if rescheduled {
		if price == nil {
			return validation.New("a rescheduled booking must be repriced")
		}
		b.Period = *period
		b.Price = *price
	}
	if c.Pickup != nil {
		b.Pickup = *c.Pickup
	}
	if c.Dropoff != nil {
		b.Dropoff = *c.Dropoff
	}
	if c.PaymentMethod != nil {
		b.PaymentMethod = strings.TrimSpace(*c.PaymentMethod)
	}
	if c.Driver != nil {
		b.Driver = *c.Driver
	}
	if c.SpecialRequests != nil {
		b.SpecialRequests = strings.TrimSpace(*c.SpecialRequests)
	}
	b.touch(now)
	b.Record(Updated{
		Meta:        events.NewMeta(EventUpdated, string(b.ID), now),
		Rescheduled: rescheduled,
		Start:       b.Period.Range.Start,
		End:         b.Period.Range.End,
		Total:       b.Price.Total,
	})
	return nil
}

// Cancel is allowed while pending, or while confirmed with more than 24 hours to pickup.
func (b *Booking) Cancel(reason, by string, now time.Time) (Cancellation, error) {
	hours := b.HoursUntilStart(now)
	switch b.Status() {
	case StatusPending:
	case StatusConfirmed:
		if hours <= 24 {
			return Cancellation{}, ErrCancellationWindowClosed
		}
	default:
		return Cancellation{}, transitionError("cancel", b.Status())
	}
	pct := RefundPercent(hours)
	c := Cancellation{
		Reason:        strings.TrimSpace(reason),
		At:            now.UTC(),
		By:            by,
		Refund:        b.Price.Total.Percent(int64(pct)),
		RefundPercent: pct,
	}
	b.phase = Cancelled{Cancellation: c}
	if c.Refund.Amount > 0 {
		b.PaymentStatus = PaymentRefundDue
	}
	b.touch(now)
	b.Record(CancelledEvent{
		Meta:          events.NewMeta(EventCancelled, string(b.ID), now),
		CarID:         string(b.CarID),
		By:            by,
		Reason:        c.Reason,
		Refund:        c.Refund,
		RefundPercent: pct,
	})
	return c, nil
}

func (b *Booking) Confirm(by string, now time.Time) error {
	if b.Status() != StatusPending {
		return transitionError("confirm", b.Status())
	}
	b.transition(Confirmed{At: now.UTC(), By: by}, EventConfirmed, by, now)
	return nil
}

// Activate hands the car over to the renter.
func (b *Booking) Activate(pickup Handover) error {
	if b.Status() != StatusConfirmed {
		return transitionError("activate", b.Status())
	}
	if err := pickup.validate("pickup"); err != nil {
		return err
	}
	pickup.At = pickup.At.UTC()
	b.transition(Active{Pickup: pickup}, EventActivated, pickup.By, pickup.At)
	return nil
}

// Complete records the return reading and the post-rental inspection.
func (b *Booking) Complete(ret Handover, inspection Inspection) error {
	active, ok := b.phase.(Active)
	if !ok {
		return transitionError("complete", b.Status())
	}
	var problems validation.Problems
	problems.Merge(ret.validate("return"))
	if active.Pickup.Mileage > 0 && ret.Mileage < active.Pickup.Mileage {
		problems.Add("return mileage cannot be lower than pickup mileage")
	}
	if err := problems.Err(); err != nil {
		return err
	}
	ret.At = ret.At.UTC()
	inspection.Notes = strings.TrimSpace(inspection.Notes)
	inspection.Damages = trimAll(inspection.Damages)
	inspection.Photos = append([]string(nil), inspection.Photos...)
	if inspection.Inspector == "" {
		inspection.Inspector = ret.By
	}
	if inspection.At.IsZero() {
		inspection.At = ret.At
	}
	b.phase = Completed{Pickup: active.Pickup, Return: ret, Inspection: inspection}
	b.touch(ret.At)
	b.Record(CompletedEvent{
		Meta:      events.NewMeta(EventCompleted, string(b.ID), ret.At),
		CarID:     string(b.CarID),
		Inspector: inspection.Inspector,
		Mileage:   ret.Mileage,
		FuelLevel: ret.FuelLevel,
		Damages:   len(inspection.Damages),
	})
	return nil
}

// Rate stores the renter's one-time rating of a completed booking.
func (b *Booking) Rate(carScore, serviceScore int, comment string, now time.Time) (Rating, error) {
	done, ok := b.phase.(Completed)
	if !ok {
		return Rating{}, transitionError("rate", b.Status())
	}
	if done.Rating != nil {
		return Rating{}, ErrAlreadyRated
	}
	var problems validation.Problems
	if carScore < 1 || carScore > 5 {
		problems.Add("carRating must be an integer between 1 and 5")
	}
	if serviceScore < 1 || serviceScore > 5 {
		problems.Add("serviceRating must be an integer between 1 and 5")
	}
	if err := problems.Err(); err != nil {
		return Rating{}, err
	}
	r := Rating{Car: carScore, Service: serviceScore, Comment: strings.TrimSpace(comment), At: now.UTC()}
	done.Rating = &r
	b.phase = done
	b.touch(now)
	b.Record(RatedEvent{
		Meta:          events.NewMeta(EventRated, string(b.ID), now),
		CarID:         string(b.CarID),
		CarRating:     carScore,
		ServiceRating: serviceScore,
	})
	return r, nil
}

// MarkNoShow is an administrative override for bookings that never happened.
func (b *Booking) MarkNoShow(by string, now time.Time) error {
	if !b.Status().Blocking() {
		return transitionError("mark as no-show", b.Status())
	}
	b.transition(NoShow{At: now.UTC(), By: by}, EventNoShow, by, now)
	return nil
}

// Clone returns a deep copy without pending events.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	out := *b
	out.Recorder = events.Recorder{}
	if b.Pickup.Coordinates != nil {
		c := *b.Pickup.Coordinates
		out.Pickup.Coordinates = &c
	}
	if b.Dropoff.Coordinates != nil {
		c := *b.Dropoff.Coordinates
		out.Dropoff.Coordinates = &c
	}
	if b.Driver.EmergencyContact != nil {
		ec := *b.Driver.EmergencyContact
		out.Driver.EmergencyContact = &ec
	}
	if done, ok := b.phase.(Completed); ok {
		done.Inspection.Damages = append([]string(nil), done.Inspection.Damages...)
		done.Inspection.Photos = append([]string(nil), done.Inspection.Photos...)
		if done.Rating != nil {
			r := *done.Rating
			done.Rating = &r
		}
		out.phase = done
	}
	return &out
}

func (b *Booking) transition(next Phase, name, by string, now time.Time) {
	from := b.Status()
	b.phase = next
	b.touch(now)
	b.Record(Transitioned{
		Meta:  events.NewMeta(name, string(b.ID), now),
		CarID: string(b.CarID),
		By:    by,
		From:  from,
		To:    next.Status(),
	})
}

func (b *Booking) touch(now time.Time) {
	b.UpdatedAt = now.UTC()
}

func (h Handover) validate(side string) error {
	var problems validation.Problems
	if h.Mileage < 0 {
		problems.Add("%s mileage cannot be negative", side)
	}
	if h.FuelLevel < 0 || h.FuelLevel > 100 {
		problems.Add("%s fuel level must be between 0 and 100", side)
	}
	return problems.Err()
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
