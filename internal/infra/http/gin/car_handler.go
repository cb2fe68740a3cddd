package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentwheels/internal/app/commands"
	"rentwheels/internal/app/dto"
	carsapp "rentwheels/internal/app/handlers/cars"
	"rentwheels/internal/app/queries"
	domainbooking "rentwheels/internal/domain/booking"
)

type CarHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

// searchCarsRequest prices are minor units of the car's rate currency.
type searchCarsRequest struct {
	City         string `form:"city"`
	Country      string `form:"country"`
	Category     string `form:"category"`
	Transmission string `form:"transmission"`
	FuelType     string `form:"fuelType"`
	MinSeats     int    `form:"minSeats"`
	PriceMin     int64  `form:"priceMin"`
	PriceMax     int64  `form:"priceMax"`
	Sort         string `form:"sort"`
	Limit        int    `form:"limit"`
	Offset       int    `form:"offset"`
	StartDate    string `form:"startDate"`
	EndDate      string `form:"endDate"`
	StartTime    string `form:"startTime"`
	EndTime      string `form:"endTime"`
}

// schedule is set only when the caller asks for availability over an interval.
func (r searchCarsRequest) schedule() *domainbooking.Schedule {
	if strings.TrimSpace(r.StartDate) == "" && strings.TrimSpace(r.EndDate) == "" {
		return nil
	}
	return &domainbooking.Schedule{
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
	}
}

type windowRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason"`
}

type availabilityRequest struct {
	Available *bool  `json:"available"`
	Status    string `json:"status"`
}

func (h CarHandler) Search(c *gin.Context) {
	var req searchCarsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := queries.Ask[carsapp.SearchCarsQuery, dto.CarCollection](c.Request.Context(), h.Queries, carsapp.SearchCarsQuery{
		City:          req.City,
		Country:       req.Country,
		Category:      req.Category,
		Transmission:  req.Transmission,
		FuelType:      req.FuelType,
		MinSeats:      req.MinSeats,
		PriceMinCents: req.PriceMin,
		PriceMaxCents: req.PriceMax,
		Sort:          req.Sort,
		Limit:         req.Limit,
		Offset:        req.Offset,
		Schedule:      req.schedule(),
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "ok", result)
}

func (h CarHandler) Get(c *gin.Context) {
	result, err := queries.Ask[carsapp.GetCarQuery, dto.Car](c.Request.Context(), h.Queries, carsapp.GetCarQuery{
		CarID: c.Param("id"),
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "ok", result)
}

func (h CarHandler) AddBlackout(c *gin.Context) {
	h.addWindow(c, carsapp.Blackout)
}

func (h CarHandler) RemoveBlackout(c *gin.Context) {
	h.removeWindow(c, carsapp.Blackout)
}

func (h CarHandler) AddMaintenance(c *gin.Context) {
	h.addWindow(c, carsapp.Maintenance)
}

func (h CarHandler) RemoveMaintenance(c *gin.Context) {
	h.removeWindow(c, carsapp.Maintenance)
}

func (h CarHandler) SetAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := carsapp.SetAvailabilityCommand{
		Actor:     actorOf(c),
		CarID:     c.Param("id"),
		Available: req.Available == nil || *req.Available,
		Status:    strings.ToLower(strings.TrimSpace(req.Status)),
	}
	result, err := commands.Dispatch[carsapp.SetAvailabilityCommand, dto.Car](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "availability updated", result)
}

func (h CarHandler) addWindow(c *gin.Context, kind carsapp.WindowKind) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := carsapp.AddWindowCommand{
		Actor:     actorOf(c),
		CarID:     c.Param("id"),
		Kind:      kind,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
	}
	result, err := commands.Dispatch[carsapp.AddWindowCommand, dto.Window](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusCreated, string(kind)+" window added", result)
}

func (h CarHandler) removeWindow(c *gin.Context, kind carsapp.WindowKind) {
	cmd := carsapp.RemoveWindowCommand{
		Actor:    actorOf(c),
		CarID:    c.Param("id"),
		Kind:     kind,
		WindowID: c.Param("windowId"),
	}
	result, err := commands.Dispatch[carsapp.RemoveWindowCommand, dto.Car](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, string(kind)+" window removed", result)
}

var _ CarHTTP = CarHandler{}
