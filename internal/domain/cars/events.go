package cars

import (
	"time"

	"rentwheels/internal/domain/shared/events"
)

const (
	EventBlackoutAdded       = "car.blackout_added"
	EventBlackoutRemoved     = "car.blackout_removed"
	EventMaintenanceAdded    = "car.maintenance_added"
	EventMaintenanceRemoved  = "car.maintenance_removed"
	EventAvailabilityChanged = "car.availability_changed"
	EventRated               = "car.rated"
)

type WindowChanged struct {
	events.Meta
	WindowID string    `json:"window_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Reason   string    `json:"reason,omitempty"`
}

type AvailabilityChanged struct {
	events.Meta
	Available bool   `json:"available"`
	Status    string `json:"status"`
}

type Rated struct {
	events.Meta
	Score   int     `json:"score"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
