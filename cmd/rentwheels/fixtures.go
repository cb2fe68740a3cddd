package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	authsvc "rentwheels/internal/app/services/auth"
	domaincars "rentwheels/internal/domain/cars"
	domainuser "rentwheels/internal/domain/user"
)

type fixtureFile struct {
	Users []userFixture `json:"users"`
	Cars  []carFixture  `json:"cars"`
}

type userFixture struct {
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

type carFixture struct {
	ID           string          `json:"id"`
	OwnerEmail   string          `json:"ownerEmail"`
	Make         string          `json:"make"`
	Model        string          `json:"model"`
	Year         int             `json:"year"`
	Category     string          `json:"category"`
	Seats        int             `json:"seats"`
	Transmission string          `json:"transmission"`
	FuelType     string          `json:"fuelType"`
	Features     []string        `json:"features"`
	City         string          `json:"city"`
	Country      string          `json:"country"`
	Rates        rateCardFixture `json:"rates"`
}

type rateCardFixture struct {
	Hourly   int64  `json:"hourly"`
	Daily    int64  `json:"daily"`
	Weekly   int64  `json:"weekly"`
	Monthly  int64  `json:"monthly"`
	Currency string `json:"currency"`
}

// loadFixtures provisions demo users and their cars. A missing file is not an error.
func loadFixtures(ctx context.Context, path string, auth *authsvc.Service, seed func(context.Context, []*domaincars.Car) error, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	owners := make(map[string]string, len(fixtures.Users))
	for _, fx := range fixtures.Users {
		user, err := provisionFixtureUser(ctx, auth, fx)
		if err != nil {
			logger.Error("fixture user invalid", "email", fx.Email, "error", err)
			continue
		}
		owners[user.Email] = string(user.ID)
	}

	now := time.Now()
	cars := make([]*domaincars.Car, 0, len(fixtures.Cars))
	for _, fx := range fixtures.Cars {
		ownerID, ok := owners[domainuser.NormalizeEmail(fx.OwnerEmail)]
		if !ok {
			logger.Error("fixture car owner unknown", "car_id", fx.ID, "owner", fx.OwnerEmail)
			continue
		}
		car, err := domaincars.NewCar(domaincars.CreateParams{
			ID:           domaincars.ID(fx.ID),
			OwnerID:      ownerID,
			Make:         fx.Make,
			Model:        fx.Model,
			Year:         fx.Year,
			Category:     fx.Category,
			Seats:        fx.Seats,
			Transmission: fx.Transmission,
			FuelType:     fx.FuelType,
			Features:     fx.Features,
			Location:     domaincars.Location{City: fx.City, Country: fx.Country},
			Rates: domaincars.RateCard{
				Hourly:   fx.Rates.Hourly,
				Daily:    fx.Rates.Daily,
				Weekly:   fx.Rates.Weekly,
				Monthly:  fx.Rates.Monthly,
				Currency: fx.Rates.Currency,
			},
			Now: now,
		})
		if err != nil {
			logger.Error("fixture car invalid", "car_id", fx.ID, "error", err)
			continue
		}
		cars = append(cars, car)
	}
	if err := seed(ctx, cars); err != nil {
		return fmt.Errorf("seed cars: %w", err)
	}
	logger.Info("fixtures loaded", "users", len(owners), "cars", len(cars))
	return nil
}

func provisionFixtureUser(ctx context.Context, auth *authsvc.Service, fx userFixture) (*domainuser.User, error) {
	roles := make([]domainuser.Role, 0, len(fx.Roles))
	for _, r := range fx.Roles {
		roles = append(roles, domainuser.Role(r))
	}
	user, err := auth.Provision(ctx, authsvc.ProvisionParams{
		Email:    fx.Email,
		Name:     fx.Name,
		Phone:    fx.Phone,
		Password: fx.Password,
		Roles:    roles,
	})
	if errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		return auth.Users.ByEmail(ctx, domainuser.NormalizeEmail(fx.Email))
	}
	return user, err
}
