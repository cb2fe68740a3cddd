package booking

import (
	"time"

	"rentwheels/internal/domain/shared/events"
	"rentwheels/internal/domain/shared/money"
)

const (
	EventCreated   = "booking.created"
	EventUpdated   = "booking.updated"
	EventConfirmed = "booking.confirmed"
	EventActivated = "booking.activated"
	EventCompleted = "booking.completed"
	EventCancelled = "booking.cancelled"
	EventRated     = "booking.rated"
	EventNoShow    = "booking.no_show"
)

type Created struct {
	events.Meta
	RenterID string      `json:"renter_id"`
	CarID    string      `json:"car_id"`
	Start    time.Time   `json:"start"`
	End      time.Time   `json:"end"`
	Total    money.Money `json:"total"`
}

type Updated struct {
	events.Meta
	Rescheduled bool        `json:"rescheduled"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Total       money.Money `json:"total"`
}

// Transitioned covers status changes that carry no extra payload.
type Transitioned struct {
	events.Meta
	CarID string `json:"car_id"`
	By    string `json:"by"`
	From  Status `json:"from"`
	To    Status `json:"to"`
}

type CancelledEvent struct {
	events.Meta
	CarID         string      `json:"car_id"`
	By            string      `json:"by"`
	Reason        string      `json:"reason,omitempty"`
	Refund        money.Money `json:"refund"`
	RefundPercent int         `json:"refund_percent"`
}

type CompletedEvent struct {
	events.Meta
	CarID     string `json:"car_id"`
	Inspector string `json:"inspector"`
	Mileage   int    `json:"mileage"`
	FuelLevel int    `json:"fuel_level"`
	Damages   int    `json:"damages"`
}

type RatedEvent struct {
	events.Meta
	CarID         string `json:"car_id"`
	CarRating     int    `json:"car_rating"`
	ServiceRating int    `json:"service_rating"`
}
