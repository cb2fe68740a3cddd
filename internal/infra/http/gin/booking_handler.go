package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"rentwheels/internal/app/commands"
	"rentwheels/internal/app/dto"
	bookingapp "rentwheels/internal/app/handlers/booking"
	"rentwheels/internal/app/queries"
	domainbooking "rentwheels/internal/domain/booking"
	"rentwheels/internal/domain/shared/validation"
)

const (
	timestampLayout  = time.RFC3339
	dateLayout       = "2006-01-02"
	photoFormField   = "photo"
	multipartOverrun = 1 << 20
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type driverRequest struct {
	LicenseNumber    string                `json:"licenseNumber"`
	LicenseExpiry    string                `json:"licenseExpiry"`
	EmergencyContact *dto.EmergencyContact `json:"emergencyContact"`
}

// toDomain accepts a plain date or a full timestamp for the licence expiry.
// An unparsable expiry is flagged and reported with the other violations.
func (r driverRequest) toDomain() domainbooking.DriverDetails {
	out := dto.DriverDetails{
		LicenseNumber:    r.LicenseNumber,
		EmergencyContact: r.EmergencyContact,
	}
	malformed := false
	if raw := strings.TrimSpace(r.LicenseExpiry); raw != "" {
		expiry, err := time.Parse(dateLayout, raw)
		if err != nil {
			expiry, err = time.Parse(timestampLayout, raw)
		}
		out.LicenseExpiry = expiry
		malformed = err != nil
	}
	driver := dto.DriverToDomain(out)
	driver.ExpiryMalformed = malformed
	return driver
}

type bookingRequest struct {
	CarID           string        `json:"carId"`
	StartDate       string        `json:"startDate"`
	EndDate         string        `json:"endDate"`
	StartTime       string        `json:"startTime"`
	EndTime         string        `json:"endTime"`
	PickupLocation  dto.Location  `json:"pickupLocation"`
	DropoffLocation dto.Location  `json:"dropoffLocation"`
	PaymentMethod   string        `json:"paymentMethod"`
	DriverDetails   driverRequest `json:"driverDetails"`
	InsuranceType   string        `json:"insuranceType"`
	SpecialRequests string        `json:"specialRequests"`
}

func (r bookingRequest) draft() domainbooking.Draft {
	return domainbooking.Draft{
		Schedule: domainbooking.Schedule{
			StartDate: r.StartDate,
			EndDate:   r.EndDate,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
		},
		Pickup:          dto.LocationToDomain(r.PickupLocation),
		Dropoff:         dto.LocationToDomain(r.DropoffLocation),
		PaymentMethod:   r.PaymentMethod,
		Driver:          r.DriverDetails.toDomain(),
		Insurance:       r.InsuranceType,
		SpecialRequests: r.SpecialRequests,
	}
}

// updateBookingRequest fields are optional; absent ones keep their value.
type updateBookingRequest struct {
	StartDate       *string        `json:"startDate"`
	EndDate         *string        `json:"endDate"`
	StartTime       *string        `json:"startTime"`
	EndTime         *string        `json:"endTime"`
	PickupLocation  *dto.Location  `json:"pickupLocation"`
	DropoffLocation *dto.Location  `json:"dropoffLocation"`
	PaymentMethod   *string        `json:"paymentMethod"`
	DriverDetails   *driverRequest `json:"driverDetails"`
	SpecialRequests *string        `json:"specialRequests"`
}

func (r updateBookingRequest) changes() domainbooking.Changes {
	out := domainbooking.Changes{
		PaymentMethod:   r.PaymentMethod,
		SpecialRequests: r.SpecialRequests,
	}
	if r.StartDate != nil || r.EndDate != nil || r.StartTime != nil || r.EndTime != nil {
		out.Schedule = &domainbooking.Schedule{
			StartDate: deref(r.StartDate),
			EndDate:   deref(r.EndDate),
			StartTime: deref(r.StartTime),
			EndTime:   deref(r.EndTime),
		}
	}
	if r.PickupLocation != nil {
		loc := dto.LocationToDomain(*r.PickupLocation)
		out.Pickup = &loc
	}
	if r.DropoffLocation != nil {
		loc := dto.LocationToDomain(*r.DropoffLocation)
		out.Dropoff = &loc
	}
	if r.DriverDetails != nil {
		driver := r.DriverDetails.toDomain()
		out.Driver = &driver
	}
	return out
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type handoverRequest struct {
	Mileage   int `json:"mileage"`
	FuelLevel int `json:"fuelLevel"`
}

type completeRequest struct {
	Mileage   int      `json:"mileage"`
	FuelLevel int      `json:"fuelLevel"`
	Notes     string   `json:"notes"`
	Damages   []string `json:"damages"`
	Photos    []string `json:"photos"`
}

type rateRequest struct {
	CarRating     int    `json:"carRating"`
	ServiceRating int    `json:"serviceRating"`
	Comment       string `json:"comment"`
}

func (h BookingHandler) Estimate(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := queries.Ask[bookingapp.EstimateBookingQuery, dto.Estimate](c.Request.Context(), h.Queries, bookingapp.EstimateBookingQuery{
		CarID: req.CarID,
		Draft: req.draft(),
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "estimate calculated", result)
}

func (h BookingHandler) Create(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		Actor:           actorOf(c),
		CarID:           req.CarID,
		Draft:           req.draft(),
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusCreated, "booking created", result)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	result, err := queries.Ask[bookingapp.ListMyBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, bookingapp.ListMyBookingsQuery{
		Actor:  actorOf(c),
		Status: c.Query("status"),
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "ok", result)
}

func (h BookingHandler) Get(c *gin.Context) {
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, bookingapp.GetBookingQuery{
		Actor:     actorOf(c),
		BookingID: c.Param("id"),
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "ok", result)
}

func (h BookingHandler) Update(c *gin.Context) {
	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.dispatch(c, "booking updated", bookingapp.UpdateBookingCommand{
		Actor:     actorOf(c),
		BookingID: c.Param("id"),
		Changes:   req.changes(),
	})
}

func (h BookingHandler) Cancel(c *gin.Context) {
	var req cancelRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	h.dispatch(c, "booking cancelled", bookingapp.CancelBookingCommand{
		Actor:     actorOf(c),
		BookingID: c.Param("id"),
		Reason:    req.Reason,
	})
}

func (h BookingHandler) Confirm(c *gin.Context) {
	h.dispatch(c, "booking confirmed", bookingapp.ConfirmBookingCommand{
		Actor:     actorOf(c),
		BookingID: c.Param("id"),
	})
}

func (h BookingHandler) Activate(c *gin.Context) {
	var req handoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.dispatch(c, "booking activated", bookingapp.ActivateBookingCommand{
		Actor:     actorOf(c),
		BookingID: c.Param("id"),
		Mileage:   req.Mileage,
		FuelLevel: req.FuelLevel,
	})
}

func (h BookingHandler) Complete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.dispatch(c, "booking completed", bookingapp.CompleteBookingCommand{
		Actor:     actorOf(c),
		BookingID: c.Param("id"),
		Mileage:   req.Mileage,
		FuelLevel: req.FuelLevel,
		Notes:     req.Notes,
		Damages:   req.Damages,
		Photos:    req.Photos,
	})
}

func (h BookingHandler) Rate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.dispatch(c, "booking rated", bookingapp.RateBookingCommand{
		Actor:         actorOf(c),
		BookingID:     c.Param("id"),
		CarRating:     req.CarRating,
		ServiceRating: req.ServiceRating,
		Comment:       req.Comment,
	})
}

func (h BookingHandler) NoShow(c *gin.Context) {
	h.dispatch(c, "booking marked as no-show", bookingapp.MarkNoShowCommand{
		Actor:     actorOf(c),
		BookingID: c.Param("id"),
	})
}

// UploadInspectionPhoto stores one multipart "photo" part and returns its URL.
// The URL is attached to the booking when the inspection is completed.
func (h BookingHandler) UploadInspectionPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bookingapp.MaxInspectionPhotoSize+multipartOverrun)
	header, err := c.FormFile(photoFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, h.Logger, validation.New("photo must be at most 10MB"))
			return
		}
		writeError(c, h.Logger, validation.New("photo file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	defer file.Close()

	cmd := bookingapp.UploadInspectionPhotoCommand{
		Actor:       actorOf(c),
		BookingID:   c.Param("id"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	result, err := commands.Dispatch[bookingapp.UploadInspectionPhotoCommand, dto.PhotoUpload](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusCreated, "photo uploaded", result)
}

func (h BookingHandler) dispatch(c *gin.Context, message string, cmd commands.Command) {
	result, err := commands.Dispatch[commands.Command, dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, message, result)
}

// bindOptionalJSON accepts an empty body as the zero request.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ BookingHTTP = BookingHandler{}
