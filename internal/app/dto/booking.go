package dto

import (
	"time"

	"rentwheels/internal/domain/availability"
	domainbooking "rentwheels/internal/domain/booking"
	domaincars "rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/pricing"
)

// PriceBreakdown amounts are minor units of Currency.
type PriceBreakdown struct {
	Base          int64  `json:"base"`
	Insurance     int64  `json:"insurance"`
	Taxes         int64  `json:"taxes"`
	Fees          int64  `json:"fees"`
	Discount      int64  `json:"discount"`
	Total         int64  `json:"total"`
	TotalDisplay  string `json:"totalDisplay"`
	Currency      string `json:"currency"`
	InsuranceType string `json:"insuranceType"`
	Weeks         int    `json:"weeks,omitempty"`
	Days          int    `json:"days,omitempty"`
	Hours         int    `json:"hours,omitempty"`
}

type Duration struct {
	Hours int `json:"hours"`
	Days  int `json:"days"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Location struct {
	Address     string       `json:"address"`
	City        string       `json:"city"`
	State       string       `json:"state,omitempty"`
	ZipCode     string       `json:"zipCode,omitempty"`
	Country     string       `json:"country"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type DriverDetails struct {
	LicenseNumber    string            `json:"licenseNumber"`
	LicenseExpiry    time.Time         `json:"licenseExpiry"`
	EmergencyContact *EmergencyContact `json:"emergencyContact,omitempty"`
}

type Handover struct {
	At        time.Time `json:"at"`
	By        string    `json:"by"`
	Mileage   int       `json:"mileage"`
	FuelLevel int       `json:"fuelLevel"`
}

type Inspection struct {
	Notes     string    `json:"notes,omitempty"`
	Damages   []string  `json:"damages"`
	Photos    []string  `json:"photos"`
	Inspector string    `json:"inspector"`
	At        time.Time `json:"at"`
}

type Rating struct {
	Car     int       `json:"carRating"`
	Service int       `json:"serviceRating"`
	Comment string    `json:"comment,omitempty"`
	At      time.Time `json:"at"`
}

type Cancellation struct {
	Reason        string    `json:"reason,omitempty"`
	At            time.Time `json:"at"`
	By            string    `json:"by"`
	Refund        int64     `json:"refund"`
	RefundPercent int       `json:"refundPercent"`
}

type Mark struct {
	At time.Time `json:"at"`
	By string    `json:"by"`
}

// Booking is the read model of a booking. Phase records are present only in
// the statuses that carry them.
type Booking struct {
	ID              string         `json:"id"`
	RenterID        string         `json:"renterId"`
	CarID           string         `json:"carId"`
	Car             *CarSummary    `json:"car,omitempty"`
	StartDate       string         `json:"startDate"`
	EndDate         string         `json:"endDate"`
	StartTime       string         `json:"startTime"`
	EndTime         string         `json:"endTime"`
	Start           time.Time      `json:"start"`
	End             time.Time      `json:"end"`
	Duration        Duration       `json:"duration"`
	Price           PriceBreakdown `json:"price"`
	PickupLocation  Location       `json:"pickupLocation"`
	DropoffLocation Location       `json:"dropoffLocation"`
	PaymentMethod   string         `json:"paymentMethod"`
	DriverDetails   DriverDetails  `json:"driverDetails"`
	SpecialRequests string         `json:"specialRequests,omitempty"`
	Status          string         `json:"status"`
	PaymentStatus   string         `json:"paymentStatus"`
	Confirmed       *Mark          `json:"confirmed,omitempty"`
	Pickup          *Handover      `json:"pickup,omitempty"`
	Return          *Handover      `json:"return,omitempty"`
	Inspection      *Inspection    `json:"inspection,omitempty"`
	Rating          *Rating        `json:"rating,omitempty"`
	Cancellation    *Cancellation  `json:"cancellation,omitempty"`
	NoShow          *Mark          `json:"noShow,omitempty"`
	Version         int64          `json:"version"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

// Estimate is a priced, availability-checked quote that was not persisted.
// Estimate always carries a price. Reason and Conflicts explain an unavailable car.
type Estimate struct {
	CarID     string         `json:"carId"`
	Start     time.Time      `json:"start"`
	End       time.Time      `json:"end"`
	Duration  Duration       `json:"duration"`
	Price     PriceBreakdown `json:"price"`
	Available bool           `json:"available"`
	Reason    string         `json:"reason,omitempty"`
	Conflicts []Interval     `json:"conflicts,omitempty"`
}

type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type PhotoUpload struct {
	BookingID string `json:"bookingId"`
	URL       string `json:"url"`
}

func MapPrice(b pricing.Breakdown) PriceBreakdown {
	return PriceBreakdown{
		Base:          b.Base.Amount,
		Insurance:     b.Insurance.Amount,
		Taxes:         b.Taxes.Amount,
		Fees:          b.Fees.Amount,
		Discount:      b.Discount.Amount,
		Total:         b.Total.Amount,
		TotalDisplay:  b.Total.Decimal(),
		Currency:      b.Total.Currency,
		InsuranceType: string(b.Tier),
		Weeks:         b.Units.Weeks,
		Days:          b.Units.Days,
		Hours:         b.Units.Hours,
	}
}

func MapDuration(d pricing.Duration) Duration {
	return Duration{Hours: d.Hours, Days: d.Days}
}

func MapEstimate(carID domaincars.ID, period domainbooking.Period, price pricing.Breakdown, result availability.Result) Estimate {
	out := Estimate{
		CarID:     string(carID),
		Start:     period.Range.Start,
		End:       period.Range.End,
		Duration:  MapDuration(period.Duration),
		Price:     MapPrice(price),
		Available: result.Available,
		Reason:    string(result.Reason),
	}
	for _, r := range result.Conflicts {
		out.Conflicts = append(out.Conflicts, Interval{Start: r.Start, End: r.End})
	}
	return out
}

// MapBooking builds the read model. car may be nil when only the booking is at hand.
func MapBooking(b *domainbooking.Booking, car *domaincars.Car) Booking {
	out := Booking{
		ID:              string(b.ID),
		RenterID:        b.RenterID,
		CarID:           string(b.CarID),
		StartDate:       b.Period.Schedule.StartDate,
		EndDate:         b.Period.Schedule.EndDate,
		StartTime:       b.Period.Schedule.StartTime,
		EndTime:         b.Period.Schedule.EndTime,
		Start:           b.Period.Range.Start,
		End:             b.Period.Range.End,
		Duration:        MapDuration(b.Period.Duration),
		Price:           MapPrice(b.Price),
		PickupLocation:  mapLocation(b.Pickup),
		DropoffLocation: mapLocation(b.Dropoff),
		PaymentMethod:   b.PaymentMethod,
		DriverDetails:   mapDriver(b.Driver),
		SpecialRequests: b.SpecialRequests,
		Status:          string(b.Status()),
		PaymentStatus:   string(b.PaymentStatus),
		Version:         b.Version,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if car != nil {
		summary := MapCarSummary(car)
		out.Car = &summary
	}
	switch phase := b.Phase().(type) {
	case domainbooking.Confirmed:
		out.Confirmed = &Mark{At: phase.At, By: phase.By}
	case domainbooking.Active:
		out.Pickup = mapHandover(phase.Pickup)
	case domainbooking.Completed:
		out.Pickup = mapHandover(phase.Pickup)
		out.Return = mapHandover(phase.Return)
		out.Inspection = &Inspection{
			Notes:     phase.Inspection.Notes,
			Damages:   append([]string{}, phase.Inspection.Damages...),
			Photos:    append([]string{}, phase.Inspection.Photos...),
			Inspector: phase.Inspection.Inspector,
			At:        phase.Inspection.At,
		}
		if phase.Rating != nil {
			out.Rating = &Rating{
				Car:     phase.Rating.Car,
				Service: phase.Rating.Service,
				Comment: phase.Rating.Comment,
				At:      phase.Rating.At,
			}
		}
	case domainbooking.Cancelled:
		out.Cancellation = &Cancellation{
			Reason:        phase.Reason,
			At:            phase.At,
			By:            phase.By,
			Refund:        phase.Refund.Amount,
			RefundPercent: phase.RefundPercent,
		}
	case domainbooking.NoShow:
		out.NoShow = &Mark{At: phase.At, By: phase.By}
	}
	return out
}

// LocationToDomain converts request input into the booking value object.
func LocationToDomain(l Location) domainbooking.Location {
	out := domainbooking.Location{
		Address: l.Address,
		City:    l.City,
		State:   l.State,
		ZipCode: l.ZipCode,
		Country: l.Country,
	}
	if l.Coordinates != nil {
		out.Coordinates = &domainbooking.Coordinates{Lat: l.Coordinates.Lat, Lng: l.Coordinates.Lng}
	}
	return out
}

func DriverToDomain(d DriverDetails) domainbooking.DriverDetails {
	out := domainbooking.DriverDetails{
		LicenseNumber: d.LicenseNumber,
		LicenseExpiry: d.LicenseExpiry,
	}
	if d.EmergencyContact != nil {
		out.EmergencyContact = &domainbooking.EmergencyContact{Name: d.EmergencyContact.Name, Phone: d.EmergencyContact.Phone}
	}
	return out
}

func mapLocation(l domainbooking.Location) Location {
	out := Location{
		Address: l.Address,
		City:    l.City,
		State:   l.State,
		ZipCode: l.ZipCode,
		Country: l.Country,
	}
	if l.Coordinates != nil {
		out.Coordinates = &Coordinates{Lat: l.Coordinates.Lat, Lng: l.Coordinates.Lng}
	}
	return out
}

func mapDriver(d domainbooking.DriverDetails) DriverDetails {
	out := DriverDetails{
		LicenseNumber: d.LicenseNumber,
		LicenseExpiry: d.LicenseExpiry,
	}
	if d.EmergencyContact != nil {
		out.EmergencyContact = &EmergencyContact{Name: d.EmergencyContact.Name, Phone: d.EmergencyContact.Phone}
	}
	return out
}

func mapHandover(h domainbooking.Handover) *Handover {
	return &Handover{At: h.At, By: h.By, Mileage: h.Mileage, FuelLevel: h.FuelLevel}
}
