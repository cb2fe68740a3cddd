package cars

import (
	"context"
	"strings"
	"time"

	"rentwheels/internal/app/commands"
	"rentwheels/internal/app/dto"
	"rentwheels/internal/app/handlers/support"
	"rentwheels/internal/app/queries"
	"rentwheels/internal/domain/access"
	domaincars "rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/shared/daterange"
	"rentwheels/internal/domain/shared/validation"
)

const (
	addWindowKey       = "cars.windows.add"
	removeWindowKey    = "cars.windows.remove"
	setAvailabilityKey = "cars.availability.set"
	dateLayout         = "2006-01-02"
)

// WindowKind selects the blackout or maintenance list of a car.
type WindowKind string

const (
	Blackout    WindowKind = "blackout"
	Maintenance WindowKind = "maintenance"
)

// AddWindowCommand blocks the car for [StartDate, EndDate], both whole days in the rental time zone.
type AddWindowCommand struct {
	Actor     access.Actor
	CarID     string     `validate:"required"`
	Kind      WindowKind `validate:"oneof=blackout maintenance"`
	StartDate string
	EndDate   string
	Reason    string `validate:"max=280"`
}

func (c AddWindowCommand) Key() string          { return addWindowKey }
func (c AddWindowCommand) Caller() access.Actor { return c.Actor }

type RemoveWindowCommand struct {
	Actor    access.Actor
	CarID    string     `validate:"required"`
	Kind     WindowKind `validate:"oneof=blackout maintenance"`
	WindowID string     `validate:"required"`
}

func (c RemoveWindowCommand) Key() string          { return removeWindowKey }
func (c RemoveWindowCommand) Caller() access.Actor { return c.Actor }

type SetAvailabilityCommand struct {
	Actor     access.Actor
	CarID     string `validate:"required"`
	Available bool
	Status    string `validate:"required,oneof=active inactive maintenance rented"`
}

func (c SetAvailabilityCommand) Key() string          { return setAvailabilityKey }
func (c SetAvailabilityCommand) Caller() access.Actor { return c.Actor }

type AddWindowHandler struct {
	Env
}

func (h *AddWindowHandler) Handle(ctx context.Context, cmd AddWindowCommand) (dto.Window, error) {
	r, err := h.windowRange(cmd.StartDate, cmd.EndDate)
	if err != nil {
		return dto.Window{}, err
	}
	var added domaincars.Window
	_, err = h.mutate(ctx, cmd.Actor, cmd.CarID, func(car *domaincars.Car, now time.Time) error {
		var err error
		if cmd.Kind == Maintenance {
			added, err = car.AddMaintenance(r, cmd.Reason, now)
		} else {
			added, err = car.AddBlackout(r, cmd.Reason, now)
		}
		return err
	})
	if err != nil {
		return dto.Window{}, err
	}
	return dto.MapWindow(added), nil
}

type RemoveWindowHandler struct {
	Env
}

func (h *RemoveWindowHandler) Handle(ctx context.Context, cmd RemoveWindowCommand) (dto.Car, error) {
	return h.mutate(ctx, cmd.Actor, cmd.CarID, func(car *domaincars.Car, now time.Time) error {
		if cmd.Kind == Maintenance {
			return car.RemoveMaintenance(strings.TrimSpace(cmd.WindowID), now)
		}
		return car.RemoveBlackout(strings.TrimSpace(cmd.WindowID), now)
	})
}

type SetAvailabilityHandler struct {
	Env
}

func (h *SetAvailabilityHandler) Handle(ctx context.Context, cmd SetAvailabilityCommand) (dto.Car, error) {
	status, err := domaincars.ParseStatus(cmd.Status)
	if err != nil {
		return dto.Car{}, validation.New("status must be one of active, inactive, maintenance, rented")
	}
	return h.mutate(ctx, cmd.Actor, cmd.CarID, func(car *domaincars.Car, now time.Time) error {
		return car.SetAvailability(cmd.Available, status, now)
	})
}

// windowRange turns two calendar dates into a range covering both days completely.
func (e Env) windowRange(startDate, endDate string) (daterange.Range, error) {
	loc := support.Location(e.Location)
	var problems validation.Problems
	start, errStart := time.ParseInLocation(dateLayout, strings.TrimSpace(startDate), loc)
	if errStart != nil {
		problems.Add("startDate must be a date formatted as YYYY-MM-DD")
	}
	end, errEnd := time.ParseInLocation(dateLayout, strings.TrimSpace(endDate), loc)
	if errEnd != nil {
		problems.Add("endDate must be a date formatted as YYYY-MM-DD")
	}
	if err := problems.Err(); err != nil {
		return daterange.Range{}, err
	}
	r, err := daterange.New(start, end.AddDate(0, 0, 1).Add(-time.Minute))
	if err != nil {
		return daterange.Range{}, validation.New("endDate must not be before startDate")
	}
	return r, nil
}

// mutate loads a car, checks the caller manages it, applies fn and saves.
func (e Env) mutate(ctx context.Context, actor access.Actor, carID string, fn func(car *domaincars.Car, now time.Time) error) (dto.Car, error) {
	unit, err := support.UnitFrom(ctx)
	if err != nil {
		return dto.Car{}, err
	}
	car, err := unit.Cars().ByID(ctx, domaincars.ID(strings.TrimSpace(carID)))
	if err != nil {
		return dto.Car{}, err
	}
	if err := access.Authorize(actor, access.ManageCar, access.Resource{CarOwnerID: car.OwnerID}); err != nil {
		return dto.Car{}, err
	}
	if err := fn(car, e.Clock.Now()); err != nil {
		return dto.Car{}, err
	}
	if err := unit.Cars().Save(ctx, car); err != nil {
		return dto.Car{}, err
	}
	if err := support.StageEvents(ctx, unit, e.Encoder, car); err != nil {
		return dto.Car{}, err
	}
	if e.Logger != nil {
		e.Logger.Info("car availability changed",
			"car_id", car.ID,
			"actor_id", actor.ID,
			"available", car.Available,
			"status", car.Status,
			"blackouts", len(car.Blackouts),
			"maintenance", len(car.Maintenance),
		)
	}
	return dto.MapCar(car), nil
}

// Register wires the catalog handlers into the buses.
func Register(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, env Env) {
	commands.Register[AddWindowCommand, dto.Window](cmdBus, &AddWindowHandler{Env: env})
	commands.Register[RemoveWindowCommand, dto.Car](cmdBus, &RemoveWindowHandler{Env: env})
	commands.Register[SetAvailabilityCommand, dto.Car](cmdBus, &SetAvailabilityHandler{Env: env})

	queries.Register[SearchCarsQuery, dto.CarCollection](queryBus, &SearchHandler{Env: env})
	queries.Register[GetCarQuery, dto.Car](queryBus, &GetHandler{Env: env})
}

var (
	_ commands.Handler[AddWindowCommand, dto.Window]    = (*AddWindowHandler)(nil)
	_ commands.Handler[RemoveWindowCommand, dto.Car]    = (*RemoveWindowHandler)(nil)
	_ commands.Handler[SetAvailabilityCommand, dto.Car] = (*SetAvailabilityHandler)(nil)
)
