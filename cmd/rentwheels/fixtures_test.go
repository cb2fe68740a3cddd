package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	authsvc "rentwheels/internal/app/services/auth"
	domaincars "rentwheels/internal/domain/cars"
	domainuser "rentwheels/internal/domain/user"
	"rentwheels/internal/infra/security"
	"rentwheels/internal/infra/storage/memory"
)

func newFixtureAuth() *authsvc.Service {
	return &authsvc.Service{
		Users:      memory.NewUserRepository(),
		Sessions:   memory.NewSessionStore(),
		Passwords:  security.BcryptHasher{Cost: 4},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: time.Hour,
	}
}

func TestLoadFixturesSeedsOwnersCars(t *testing.T) {
	auth := newFixtureAuth()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var seeded []*domaincars.Car
	seed := func(_ context.Context, cars []*domaincars.Car) error {
		seeded = append(seeded, cars...)
		return nil
	}

	path := filepath.Join("..", "..", "data", "fixtures.json")
	require.NoError(t, loadFixtures(context.Background(), path, auth, seed, logger))
	require.Len(t, seeded, 3)

	owner, err := auth.Users.ByEmail(context.Background(), "owner@rentwheels.local")
	require.NoError(t, err)
	require.Contains(t, owner.Roles, domainuser.RoleOwner)
	for _, car := range seeded {
		require.Equal(t, string(owner.ID), car.OwnerID)
		require.True(t, car.Available)
	}

	// A second load reuses the provisioned accounts.
	seeded = nil
	require.NoError(t, loadFixtures(context.Background(), path, auth, seed, logger))
	require.Len(t, seeded, 3)
	require.Equal(t, string(owner.ID), seeded[0].OwnerID)
}

func TestLoadFixturesSkipsUnknownOwnersAndMissingFiles(t *testing.T) {
	auth := newFixtureAuth()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	calls := 0
	seed := func(_ context.Context, cars []*domaincars.Car) error {
		calls++
		require.Empty(t, cars)
		return nil
	}

	dir := t.TempDir()
	require.NoError(t, loadFixtures(context.Background(), filepath.Join(dir, "absent.json"), auth, seed, logger))
	require.Zero(t, calls)

	path := filepath.Join(dir, "fixtures.json")
	body := `{"cars":[{"id":"c-1","ownerEmail":"ghost@example.com","rates":{"hourly":100,"daily":500,"currency":"EUR"}}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	require.NoError(t, loadFixtures(context.Background(), path, auth, seed, logger))
	require.Equal(t, 1, calls)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	require.Error(t, loadFixtures(context.Background(), path, auth, seed, logger))
}
