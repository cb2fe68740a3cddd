package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentwheels/internal/app/dto"
	bookingapp "rentwheels/internal/app/handlers/booking"
	"rentwheels/internal/app/queries"
)

// OwnerBookingHandler lists bookings across the caller's fleet.
type OwnerBookingHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h OwnerBookingHandler) List(c *gin.Context) {
	result, err := queries.Ask[bookingapp.ListOwnerBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, bookingapp.ListOwnerBookingsQuery{
		Actor:  actorOf(c),
		Status: c.Query("status"),
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "ok", result)
}

var _ OwnerBookingHTTP = OwnerBookingHandler{}
