// Package cars holds the catalog queries and the owner availability controls.
package cars

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rentwheels/internal/app/dto"
	"rentwheels/internal/app/handlers/support"
	"rentwheels/internal/app/outbox"
	"rentwheels/internal/app/queries"
	"rentwheels/internal/app/uow"
	"rentwheels/internal/domain/availability"
	domainbooking "rentwheels/internal/domain/booking"
	domaincars "rentwheels/internal/domain/cars"
)

const (
	searchCarsKey = "cars.search"
	getCarKey     = "cars.get"
	scanPageSize  = 100
)

// Env carries the collaborators shared by car handlers.
type Env struct {
	UoWFactory uow.UoWFactory
	Clock      support.Clock
	Location   *time.Location
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

// SearchCarsQuery filters the catalog. When Schedule is set only cars free for
// that interval are returned.
type SearchCarsQuery struct {
	City          string
	Country       string
	Category      string
	Transmission  string
	FuelType      string
	MinSeats      int    `validate:"gte=0"`
	PriceMinCents int64  `validate:"gte=0"`
	PriceMaxCents int64  `validate:"gte=0"`
	Sort          string `validate:"omitempty,oneof=price_asc price_desc rating_desc newest"`
	Limit         int    `validate:"gte=0,lte=100"`
	Offset        int    `validate:"gte=0"`
	Schedule      *domainbooking.Schedule
}

func (q SearchCarsQuery) Key() string { return searchCarsKey }

func (q SearchCarsQuery) params() domaincars.SearchParams {
	return domaincars.SearchParams{
		City:          q.City,
		Country:       q.Country,
		Category:      q.Category,
		Transmission:  q.Transmission,
		FuelType:      q.FuelType,
		MinSeats:      q.MinSeats,
		PriceMinCents: q.PriceMinCents,
		PriceMaxCents: q.PriceMaxCents,
		Sort:          domaincars.CatalogSort(strings.TrimSpace(q.Sort)),
		Limit:         q.Limit,
		Offset:        q.Offset,
		OnlyActive:    true,
	}.Normalized()
}

type SearchHandler struct {
	Env
}

func (h *SearchHandler) Handle(ctx context.Context, q SearchCarsQuery) (dto.CarCollection, error) {
	params := q.params()
	var period *domainbooking.Period
	if q.Schedule != nil {
		p, err := domainbooking.ValidateSchedule(*q.Schedule, h.Clock.Now(), support.Location(h.Location))
		if err != nil {
			return dto.CarCollection{}, err
		}
		period = &p
	}

	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.CarCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if period == nil {
		result, err := unit.Cars().Search(execCtx, params)
		if err != nil {
			return dto.CarCollection{}, err
		}
		return mapCollection(result.Items, result.Total, params), nil
	}

	// Availability depends on bookings, so the whole filtered catalog is scanned
	// before paging.
	free := make([]*domaincars.Car, 0)
	scan := params
	scan.Limit = scanPageSize
	for scan.Offset = 0; ; scan.Offset += scanPageSize {
		page, err := unit.Cars().Search(execCtx, scan)
		if err != nil {
			return dto.CarCollection{}, err
		}
		for _, car := range page.Items {
			overlapping, err := unit.Bookings().Overlapping(execCtx, car.ID, period.Range, "")
			if err != nil {
				return dto.CarCollection{}, fmt.Errorf("check car %s: %w", car.ID, err)
			}
			if availability.Evaluate(car, period.Range, overlapping, "").Available {
				free = append(free, car)
			}
		}
		if len(page.Items) < scanPageSize {
			break
		}
	}
	total := len(free)
	start := min(params.Offset, total)
	end := min(start+params.Limit, total)
	return mapCollection(free[start:end], total, params), nil
}

type GetCarQuery struct {
	CarID string `validate:"required"`
}

func (q GetCarQuery) Key() string { return getCarKey }

type GetHandler struct {
	Env
}

func (h *GetHandler) Handle(ctx context.Context, q GetCarQuery) (dto.Car, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Car{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	car, err := unit.Cars().ByID(execCtx, domaincars.ID(strings.TrimSpace(q.CarID)))
	if err != nil {
		return dto.Car{}, err
	}
	return dto.MapCar(car), nil
}

func mapCollection(items []*domaincars.Car, total int, params domaincars.SearchParams) dto.CarCollection {
	out := dto.CarCollection{
		Items:  make([]dto.Car, 0, len(items)),
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	for _, car := range items {
		out.Items = append(out.Items, dto.MapCar(car))
	}
	return out
}

var (
	_ queries.Handler[SearchCarsQuery, dto.CarCollection] = (*SearchHandler)(nil)
	_ queries.Handler[GetCarQuery, dto.Car]               = (*GetHandler)(nil)
)
