package booking

import (
	"strings"
	"time"

	"rentwheels/internal/domain/pricing"
	"rentwheels/internal/domain/shared/validation"
)

// LicenseValidity is how long a driver license must remain valid after booking.
const LicenseValidity = 30 * 24 * time.Hour

type Coordinates struct {
	Lat float64
	Lng float64
}

type Location struct {
	Address     string
	City        string
	State       string
	ZipCode     string
	Country     string
	Coordinates *Coordinates
}

func (l Location) validate(problems *validation.Problems, field string) {
	if strings.TrimSpace(l.Address) == "" {
		problems.Add("%s.address is required", field)
	}
	if strings.TrimSpace(l.City) == "" {
		problems.Add("%s.city is required", field)
	}
	if strings.TrimSpace(l.Country) == "" {
		problems.Add("%s.country is required", field)
	}
	if c := l.Coordinates; c != nil && (c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180) {
		problems.Add("%s.coordinates are out of range", field)
	}
}

type EmergencyContact struct {
	Name  string
	Phone string
}

type DriverDetails struct {
	LicenseNumber    string
	LicenseExpiry    time.Time
	EmergencyContact *EmergencyContact
	// ExpiryMalformed is set when the submitted expiry could not be parsed.
	ExpiryMalformed bool
}

// validate checks the license against now, not against the rental start.
func (d DriverDetails) validate(problems *validation.Problems, now time.Time) {
	if strings.TrimSpace(d.LicenseNumber) == "" {
		problems.Add("driverDetails.licenseNumber is required")
	}
	switch {
	case d.ExpiryMalformed:
		problems.Add("driverDetails.licenseExpiry must be a YYYY-MM-DD date")
	case d.LicenseExpiry.IsZero():
		problems.Add("driverDetails.licenseExpiry is required")
	case !d.LicenseExpiry.After(now.Add(LicenseValidity)):
		problems.Add("driver license must be valid for more than 30 days")
	}
}

// Draft is everything a renter submits for a new booking.
type Draft struct {
	Schedule        Schedule
	Pickup          Location
	Dropoff         Location
	PaymentMethod   string
	Driver          DriverDetails
	Insurance       string
	SpecialRequests string
}

// Validate runs every input rule and aggregates the violations.
func (d Draft) Validate(now time.Time, loc *time.Location) (Period, pricing.InsuranceTier, error) {
	var problems validation.Problems
	period, err := ValidateSchedule(d.Schedule, now, loc)
	problems.Merge(err)
	d.Driver.validate(&problems, now)
	d.Pickup.validate(&problems, "pickupLocation")
	d.Dropoff.validate(&problems, "dropoffLocation")
	tier, tierErr := pricing.ParseInsuranceTier(d.Insurance)
	if tierErr != nil {
		problems.Add("insuranceType must be one of basic, comprehensive, premium")
	}
	if err := problems.Err(); err != nil {
		return Period{}, "", err
	}
	return period, tier, nil
}

// ValidateQuote checks only what pricing needs: the schedule and the insurance tier.
func (d Draft) ValidateQuote(now time.Time, loc *time.Location) (Period, pricing.InsuranceTier, error) {
	var problems validation.Problems
	period, err := ValidateSchedule(d.Schedule, now, loc)
	problems.Merge(err)
	tier, tierErr := pricing.ParseInsuranceTier(d.Insurance)
	if tierErr != nil {
		problems.Add("insuranceType must be one of basic, comprehensive, premium")
	}
	if err := problems.Err(); err != nil {
		return Period{}, "", err
	}
	return period, tier, nil
}

// Changes holds the optional fields of an update. Nil means unchanged.
type Changes struct {
	Schedule        *Schedule
	Pickup          *Location
	Dropoff         *Location
	PaymentMethod   *string
	Driver          *DriverDetails
	SpecialRequests *string
}

// Validate checks the supplied non-interval fields and, when present, the schedule.
func (c Changes) Validate(now time.Time, loc *time.Location) (*Period, error) {
	var problems validation.Problems
	var period *Period
	if c.Schedule != nil {
		p, err := ValidateSchedule(*c.Schedule, now, loc)
		problems.Merge(err)
		if err == nil {
			period = &p
		}
	}
	if c.Driver != nil {
		c.Driver.validate(&problems, now)
	}
	if c.Pickup != nil {
		c.Pickup.validate(&problems, "pickupLocation")
	}
	if c.Dropoff != nil {
		c.Dropoff.validate(&problems, "dropoffLocation")
	}
	if err := problems.Err(); err != nil {
		return nil, err
	}
	return period, nil
}
