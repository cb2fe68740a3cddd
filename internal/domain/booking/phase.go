package booking

import (
	"strings"
	"time"

	"rentwheels/internal/domain/shared/money"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

// BlockingStatuses hold the car: only these conflict with other bookings.
var BlockingStatuses = []Status{StatusPending, StatusConfirmed, StatusActive}

func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusActive
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

func ParseStatus(raw string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusConfirmed, StatusActive, StatusCompleted, StatusCancelled, StatusNoShow:
		return s, true
	}
	return "", false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentRefundDue PaymentStatus = "refund_due"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentFailed    PaymentStatus = "failed"
)

// Phase is the status-specific state of a booking. Each implementation carries
// only the data that exists in its status, so a pending booking cannot hold a refund.
type Phase interface {
	Status() Status
	phase()
}

type Pending struct{}

type Confirmed struct {
	At time.Time
	By string
}

// Handover is the car's reading when it changes hands.
type Handover struct {
	At        time.Time
	By        string
	Mileage   int
	FuelLevel int
}

type Active struct {
	Pickup Handover
}

type Inspection struct {
	Notes     string
	Damages   []string
	Photos    []string
	Inspector string
	At        time.Time
}

type Rating struct {
	Car     int
	Service int
	Comment string
	At      time.Time
}

type Completed struct {
	Pickup     Handover
	Return     Handover
	Inspection Inspection
	Rating     *Rating
}

type Cancellation struct {
	Reason        string
	At            time.Time
	By            string
	Refund        money.Money
	RefundPercent int
}

type Cancelled struct {
	Cancellation
}

type NoShow struct {
	At time.Time
	By string
}

func (Pending) Status() Status   { return StatusPending }
func (Confirmed) Status() Status { return StatusConfirmed }
func (Active) Status() Status    { return StatusActive }
func (Completed) Status() Status { return StatusCompleted }
func (Cancelled) Status() Status { return StatusCancelled }
func (NoShow) Status() Status    { return StatusNoShow }

func (Pending) phase()   {}
func (Confirmed) phase() {}
func (Active) phase()    {}
func (Completed) phase() {}
func (Cancelled) phase() {}
func (NoShow) phase()    {}

// RefundPercent is the share of the total returned when cancelling hoursUntilStart before pickup.
func RefundPercent(hoursUntilStart float64) int {
	switch {
	case hoursUntilStart >= 48:
		return 100
	case hoursUntilStart >= 24:
		return 50
	default:
		return 0
	}
}
