package mongo

import (
	"fmt"
	"strings"
	"time"

	domainbooking "rentwheels/internal/domain/booking"
	domaincars "rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/pricing"
	"rentwheels/internal/domain/shared/daterange"
	"rentwheels/internal/domain/shared/money"
)

type rangeDocument struct {
	Start time.Time `bson:"start"`
	End   time.Time `bson:"end"`
}

func newRangeDocument(r daterange.Range) rangeDocument {
	return rangeDocument{Start: r.Start.UTC(), End: r.End.UTC()}
}

func (d rangeDocument) toRange() daterange.Range {
	return daterange.Range{Start: d.Start.UTC(), End: d.End.UTC()}
}

type windowDocument struct {
	ID     string        `bson:"id"`
	Range  rangeDocument `bson:"range"`
	Reason string        `bson:"reason,omitempty"`
}

type rateDocument struct {
	Hourly   int64  `bson:"hourly"`
	Daily    int64  `bson:"daily"`
	Weekly   int64  `bson:"weekly"`
	Monthly  int64  `bson:"monthly"`
	Currency string `bson:"currency"`
}

type ratingDocument struct {
	Average float64 `bson:"average"`
	Count   int     `bson:"count"`
}

// carDocument stores lower-cased city and country keys next to the display
// values so catalog filters can use an index.
type carDocument struct {
	ID            string           `bson:"_id"`
	OwnerID       string           `bson:"owner_id"`
	Make          string           `bson:"make"`
	Model         string           `bson:"model"`
	Year          int              `bson:"year"`
	Category      string           `bson:"category"`
	Seats         int              `bson:"seats"`
	Transmission  string           `bson:"transmission"`
	FuelType      string           `bson:"fuel_type"`
	Features      []string         `bson:"features"`
	City          string           `bson:"city"`
	CityKey       string           `bson:"city_key"`
	Country       string           `bson:"country"`
	CountryKey    string           `bson:"country_key"`
	Rates         rateDocument     `bson:"rates"`
	Available     bool             `bson:"available"`
	Status        string           `bson:"status"`
	Blackouts     []windowDocument `bson:"blackouts"`
	Maintenance   []windowDocument `bson:"maintenance"`
	Rating        ratingDocument   `bson:"rating"`
	TotalBookings int              `bson:"total_bookings"`
	CreatedAt     time.Time        `bson:"created_at"`
	UpdatedAt     time.Time        `bson:"updated_at"`
	Version       int64            `bson:"version"`
}

func newCarDocument(c *domaincars.Car) carDocument {
	return carDocument{
		ID:           string(c.ID),
		OwnerID:      c.OwnerID,
		Make:         c.Make,
		Model:        c.Model,
		Year:         c.Year,
		Category:     c.Category,
		Seats:        c.Seats,
		Transmission: c.Transmission,
		FuelType:     c.FuelType,
		Features:     append([]string{}, c.Features...),
		City:         c.Location.City,
		CityKey:      strings.ToLower(c.Location.City),
		Country:      c.Location.Country,
		CountryKey:   strings.ToLower(c.Location.Country),
		Rates: rateDocument{
			Hourly:   c.Rates.Hourly,
			Daily:    c.Rates.Daily,
			Weekly:   c.Rates.Weekly,
			Monthly:  c.Rates.Monthly,
			Currency: c.Rates.Currency,
		},
		Available:     c.Available,
		Status:        string(c.Status),
		Blackouts:     newWindowDocuments(c.Blackouts),
		Maintenance:   newWindowDocuments(c.Maintenance),
		Rating:        ratingDocument{Average: c.Rating.Average, Count: c.Rating.Count},
		TotalBookings: c.TotalBookings,
		CreatedAt:     c.CreatedAt.UTC(),
		UpdatedAt:     c.UpdatedAt.UTC(),
		Version:       c.Version,
	}
}

func (d carDocument) toAggregate() *domaincars.Car {
	return &domaincars.Car{
		ID:           domaincars.ID(d.ID),
		OwnerID:      d.OwnerID,
		Make:         d.Make,
		Model:        d.Model,
		Year:         d.Year,
		Category:     d.Category,
		Seats:        d.Seats,
		Transmission: d.Transmission,
		FuelType:     d.FuelType,
		Features:     d.Features,
		Location:     domaincars.Location{City: d.City, Country: d.Country},
		Rates: domaincars.RateCard{
			Hourly:   d.Rates.Hourly,
			Daily:    d.Rates.Daily,
			Weekly:   d.Rates.Weekly,
			Monthly:  d.Rates.Monthly,
			Currency: d.Rates.Currency,
		},
		Available:     d.Available,
		Status:        domaincars.Status(d.Status),
		Blackouts:     windowsOf(d.Blackouts),
		Maintenance:   windowsOf(d.Maintenance),
		Rating:        domaincars.Rating{Average: d.Rating.Average, Count: d.Rating.Count},
		TotalBookings: d.TotalBookings,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
		Version:       d.Version,
	}
}

func newWindowDocuments(windows []domaincars.Window) []windowDocument {
	out := make([]windowDocument, 0, len(windows))
	for _, w := range windows {
		out = append(out, windowDocument{ID: w.ID, Range: newRangeDocument(w.Range), Reason: w.Reason})
	}
	return out
}

func windowsOf(docs []windowDocument) []domaincars.Window {
	if len(docs) == 0 {
		return nil
	}
	out := make([]domaincars.Window, 0, len(docs))
	for _, d := range docs {
		out = append(out, domaincars.Window{ID: d.ID, Range: d.Range.toRange(), Reason: d.Reason})
	}
	return out
}

type scheduleDocument struct {
	StartDate string `bson:"start_date"`
	EndDate   string `bson:"end_date"`
	StartTime string `bson:"start_time"`
	EndTime   string `bson:"end_time"`
}

type priceDocument struct {
	Base      money.Money `bson:"base"`
	Insurance money.Money `bson:"insurance"`
	Taxes     money.Money `bson:"taxes"`
	Fees      money.Money `bson:"fees"`
	Discount  money.Money `bson:"discount"`
	Total     money.Money `bson:"total"`
	Tier      string      `bson:"tier"`
	Weeks     int         `bson:"weeks"`
	Days      int         `bson:"days"`
	Hours     int         `bson:"hours"`
}

type coordinatesDocument struct {
	Lat float64 `bson:"lat"`
	Lng float64 `bson:"lng"`
}

type locationDocument struct {
	Address     string               `bson:"address"`
	City        string               `bson:"city"`
	State       string               `bson:"state,omitempty"`
	ZipCode     string               `bson:"zip_code,omitempty"`
	Country     string               `bson:"country"`
	Coordinates *coordinatesDocument `bson:"coordinates,omitempty"`
}

type contactDocument struct {
	Name  string `bson:"name"`
	Phone string `bson:"phone"`
}

type driverDocument struct {
	LicenseNumber    string           `bson:"license_number"`
	LicenseExpiry    time.Time        `bson:"license_expiry"`
	EmergencyContact *contactDocument `bson:"emergency_contact,omitempty"`
}

type handoverDocument struct {
	At        time.Time `bson:"at"`
	By        string    `bson:"by"`
	Mileage   int       `bson:"mileage"`
	FuelLevel int       `bson:"fuel_level"`
}

type inspectionDocument struct {
	Notes     string    `bson:"notes,omitempty"`
	Damages   []string  `bson:"damages"`
	Photos    []string  `bson:"photos"`
	Inspector string    `bson:"inspector"`
	At        time.Time `bson:"at"`
}

type ratingRecordDocument struct {
	Car     int       `bson:"car"`
	Service int       `bson:"service"`
	Comment string    `bson:"comment,omitempty"`
	At      time.Time `bson:"at"`
}

type cancellationDocument struct {
	Reason        string      `bson:"reason,omitempty"`
	At            time.Time   `bson:"at"`
	By            string      `bson:"by"`
	Refund        money.Money `bson:"refund"`
	RefundPercent int         `bson:"refund_percent"`
}

type markDocument struct {
	At time.Time `bson:"at"`
	By string    `bson:"by"`
}

// phaseDocument flattens the status-specific records. Only the fields of the
// stored status are set.
type phaseDocument struct {
	Confirmed    *markDocument         `bson:"confirmed,omitempty"`
	Pickup       *handoverDocument     `bson:"pickup,omitempty"`
	Return       *handoverDocument     `bson:"return,omitempty"`
	Inspection   *inspectionDocument   `bson:"inspection,omitempty"`
	Rating       *ratingRecordDocument `bson:"rating,omitempty"`
	Cancellation *cancellationDocument `bson:"cancellation,omitempty"`
	NoShow       *markDocument         `bson:"no_show,omitempty"`
}

type bookingDocument struct {
	ID              string           `bson:"_id"`
	RenterID        string           `bson:"renter_id"`
	CarID           string           `bson:"car_id"`
	Schedule        scheduleDocument `bson:"schedule"`
	Range           rangeDocument    `bson:"range"`
	DurationHours   int              `bson:"duration_hours"`
	DurationDays    int              `bson:"duration_days"`
	Price           priceDocument    `bson:"price"`
	Pickup          locationDocument `bson:"pickup_location"`
	Dropoff         locationDocument `bson:"dropoff_location"`
	PaymentMethod   string           `bson:"payment_method"`
	Driver          driverDocument   `bson:"driver"`
	SpecialRequests string           `bson:"special_requests,omitempty"`
	PaymentStatus   string           `bson:"payment_status"`
	Status          string           `bson:"status"`
	Phase           phaseDocument    `bson:"phase"`
	CreatedAt       time.Time        `bson:"created_at"`
	UpdatedAt       time.Time        `bson:"updated_at"`
	Version         int64            `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	s := b.Period.Schedule
	return bookingDocument{
		ID:       string(b.ID),
		RenterID: b.RenterID,
		CarID:    string(b.CarID),
		Schedule: scheduleDocument{
			StartDate: s.StartDate,
			EndDate:   s.EndDate,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
		},
		Range:         newRangeDocument(b.Period.Range),
		DurationHours: b.Period.Duration.Hours,
		DurationDays:  b.Period.Duration.Days,
		Price: priceDocument{
			Base:      b.Price.Base,
			Insurance: b.Price.Insurance,
			Taxes:     b.Price.Taxes,
			Fees:      b.Price.Fees,
			Discount:  b.Price.Discount,
			Total:     b.Price.Total,
			Tier:      string(b.Price.Tier),
			Weeks:     b.Price.Units.Weeks,
			Days:      b.Price.Units.Days,
			Hours:     b.Price.Units.Hours,
		},
		Pickup:          newLocationDocument(b.Pickup),
		Dropoff:         newLocationDocument(b.Dropoff),
		PaymentMethod:   b.PaymentMethod,
		Driver:          newDriverDocument(b.Driver),
		SpecialRequests: b.SpecialRequests,
		PaymentStatus:   string(b.PaymentStatus),
		Status:          string(b.Status()),
		Phase:           newPhaseDocument(b.Phase()),
		CreatedAt:       b.CreatedAt.UTC(),
		UpdatedAt:       b.UpdatedAt.UTC(),
		Version:         b.Version,
	}
}

func (d bookingDocument) toAggregate() (*domainbooking.Booking, error) {
	status, ok := domainbooking.ParseStatus(d.Status)
	if !ok {
		return nil, fmt.Errorf("mongo: booking %s has unknown status %q", d.ID, d.Status)
	}
	phase, err := d.Phase.toPhase(status)
	if err != nil {
		return nil, fmt.Errorf("mongo: booking %s: %w", d.ID, err)
	}
	return domainbooking.Restore(domainbooking.Booking{
		ID:       domainbooking.ID(d.ID),
		RenterID: d.RenterID,
		CarID:    domaincars.ID(d.CarID),
		Period: domainbooking.Period{
			Schedule: domainbooking.Schedule{
				StartDate: d.Schedule.StartDate,
				EndDate:   d.Schedule.EndDate,
				StartTime: d.Schedule.StartTime,
				EndTime:   d.Schedule.EndTime,
			},
			Range:    d.Range.toRange(),
			Duration: pricing.Duration{Hours: d.DurationHours, Days: d.DurationDays},
		},
		Price: pricing.Breakdown{
			Base:      d.Price.Base,
			Insurance: d.Price.Insurance,
			Taxes:     d.Price.Taxes,
			Fees:      d.Price.Fees,
			Discount:  d.Price.Discount,
			Total:     d.Price.Total,
			Tier:      pricing.InsuranceTier(d.Price.Tier),
			Units:     pricing.Units{Weeks: d.Price.Weeks, Days: d.Price.Days, Hours: d.Price.Hours},
		},
		Pickup:          d.Pickup.toLocation(),
		Dropoff:         d.Dropoff.toLocation(),
		PaymentMethod:   d.PaymentMethod,
		Driver:          d.Driver.toDriver(),
		SpecialRequests: d.SpecialRequests,
		PaymentStatus:   domainbooking.PaymentStatus(d.PaymentStatus),
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
		Version:         d.Version,
	}, phase), nil
}

func newPhaseDocument(p domainbooking.Phase) phaseDocument {
	var out phaseDocument
	switch phase := p.(type) {
	case domainbooking.Confirmed:
		out.Confirmed = &markDocument{At: phase.At, By: phase.By}
	case domainbooking.Active:
		out.Pickup = newHandoverDocument(phase.Pickup)
	case domainbooking.Completed:
		out.Pickup = newHandoverDocument(phase.Pickup)
		out.Return = newHandoverDocument(phase.Return)
		out.Inspection = &inspectionDocument{
			Notes:     phase.Inspection.Notes,
			Damages:   append([]string{}, phase.Inspection.Damages...),
			Photos:    append([]string{}, phase.Inspection.Photos...),
			Inspector: phase.Inspection.Inspector,
			At:        phase.Inspection.At,
		}
		if r := phase.Rating; r != nil {
			out.Rating = &ratingRecordDocument{Car: r.Car, Service: r.Service, Comment: r.Comment, At: r.At}
		}
	case domainbooking.Cancelled:
		out.Cancellation = &cancellationDocument{
			Reason:        phase.Reason,
			At:            phase.At,
			By:            phase.By,
			Refund:        phase.Refund,
			RefundPercent: phase.RefundPercent,
		}
	case domainbooking.NoShow:
		out.NoShow = &markDocument{At: phase.At, By: phase.By}
	}
	return out
}

func (d phaseDocument) toPhase(status domainbooking.Status) (domainbooking.Phase, error) {
	missing := func(part string) error {
		return fmt.Errorf("%s booking is missing its %s record", status, part)
	}
	switch status {
	case domainbooking.StatusPending:
		return domainbooking.Pending{}, nil
	case domainbooking.StatusConfirmed:
		if d.Confirmed == nil {
			return nil, missing("confirmation")
		}
		return domainbooking.Confirmed{At: d.Confirmed.At.UTC(), By: d.Confirmed.By}, nil
	case domainbooking.StatusActive:
		if d.Pickup == nil {
			return nil, missing("pickup")
		}
		return domainbooking.Active{Pickup: d.Pickup.toHandover()}, nil
	case domainbooking.StatusCompleted:
		if d.Pickup == nil || d.Return == nil || d.Inspection == nil {
			return nil, missing("return")
		}
		done := domainbooking.Completed{
			Pickup: d.Pickup.toHandover(),
			Return: d.Return.toHandover(),
			Inspection: domainbooking.Inspection{
				Notes:     d.Inspection.Notes,
				Damages:   d.Inspection.Damages,
				Photos:    d.Inspection.Photos,
				Inspector: d.Inspection.Inspector,
				At:        d.Inspection.At.UTC(),
			},
		}
		if r := d.Rating; r != nil {
			done.Rating = &domainbooking.Rating{Car: r.Car, Service: r.Service, Comment: r.Comment, At: r.At.UTC()}
		}
		return done, nil
	case domainbooking.StatusCancelled:
		if d.Cancellation == nil {
			return nil, missing("cancellation")
		}
		c := d.Cancellation
		return domainbooking.Cancelled{Cancellation: domainbooking.Cancellation{
			Reason:        c.Reason,
			At:            c.At.UTC(),
			By:            c.By,
			Refund:        c.Refund,
			RefundPercent: c.RefundPercent,
		}}, nil
	case domainbooking.StatusNoShow:
		if d.NoShow == nil {
			return nil, missing("no-show")
		}
		return domainbooking.NoShow{At: d.NoShow.At.UTC(), By: d.NoShow.By}, nil
	}
	return nil, fmt.Errorf("unsupported status %q", status)
}

func newHandoverDocument(h domainbooking.Handover) *handoverDocument {
	return &handoverDocument{At: h.At, By: h.By, Mileage: h.Mileage, FuelLevel: h.FuelLevel}
}

func (d handoverDocument) toHandover() domainbooking.Handover {
	return domainbooking.Handover{At: d.At.UTC(), By: d.By, Mileage: d.Mileage, FuelLevel: d.FuelLevel}
}

func newLocationDocument(l domainbooking.Location) locationDocument {
	out := locationDocument{Address: l.Address, City: l.City, State: l.State, ZipCode: l.ZipCode, Country: l.Country}
	if l.Coordinates != nil {
		out.Coordinates = &coordinatesDocument{Lat: l.Coordinates.Lat, Lng: l.Coordinates.Lng}
	}
	return out
}

func (d locationDocument) toLocation() domainbooking.Location {
	out := domainbooking.Location{Address: d.Address, City: d.City, State: d.State, ZipCode: d.ZipCode, Country: d.Country}
	if d.Coordinates != nil {
		out.Coordinates = &domainbooking.Coordinates{Lat: d.Coordinates.Lat, Lng: d.Coordinates.Lng}
	}
	return out
}

func newDriverDocument(d domainbooking.DriverDetails) driverDocument {
	out := driverDocument{LicenseNumber: d.LicenseNumber, LicenseExpiry: d.LicenseExpiry.UTC()}
	if d.EmergencyContact != nil {
		out.EmergencyContact = &contactDocument{Name: d.EmergencyContact.Name, Phone: d.EmergencyContact.Phone}
	}
	return out
}

func (d driverDocument) toDriver() domainbooking.DriverDetails {
	out := domainbooking.DriverDetails{LicenseNumber: d.LicenseNumber, LicenseExpiry: d.LicenseExpiry.UTC()}
	if d.EmergencyContact != nil {
		out.EmergencyContact = &domainbooking.EmergencyContact{Name: d.EmergencyContact.Name, Phone: d.EmergencyContact.Phone}
	}
	return out
}
