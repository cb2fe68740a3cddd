package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "rentwheels/internal/domain/auth"
	domainuser "rentwheels/internal/domain/user"
)

func TestUserRepositoryEmailOwnership(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	alice := &domainuser.User{ID: "u-1", Email: "Alice@Example.com", Roles: []domainuser.Role{domainuser.RoleUser}}
	require.NoError(t, repo.Save(ctx, alice))

	got, err := repo.ByEmail(ctx, " alice@example.COM ")
	require.NoError(t, err)
	require.Equal(t, domainuser.ID("u-1"), got.ID)

	got.Roles[0] = domainuser.RoleAdmin
	again, err := repo.ByID(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, []domainuser.Role{domainuser.RoleUser}, again.Roles)

	err = repo.Save(ctx, &domainuser.User{ID: "u-2", Email: "alice@example.com"})
	require.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)

	alice.Email = "alice@rentwheels.local"
	require.NoError(t, repo.Save(ctx, alice))
	_, err = repo.ByEmail(ctx, "alice@example.com")
	require.ErrorIs(t, err, domainuser.ErrNotFound)
	require.NoError(t, repo.Save(ctx, &domainuser.User{ID: "u-2", Email: "alice@example.com"}))

	require.ErrorIs(t, repo.Save(ctx, &domainuser.User{ID: " "}), domainuser.ErrIDRequired)
	require.ErrorIs(t, repo.Save(ctx, &domainuser.User{ID: "u-3"}), domainuser.ErrEmailRequired)
	_, err = repo.ByID(ctx, "u-404")
	require.ErrorIs(t, err, domainuser.ErrNotFound)
}

func TestSessionStoreDropsExpiredSessions(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore()
	store.Now = func() time.Time { return clock }

	user := &domainuser.User{ID: "u-1", Roles: []domainuser.Role{domainuser.RoleUser}}
	session, err := domainauth.NewSession("tok-1", user, time.Hour, clock)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, session))
	require.ErrorIs(t, store.Save(ctx, &domainauth.Session{}), domainauth.ErrTokenRequired)

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, domainuser.ID("u-1"), got.UserID)

	clock = clock.Add(time.Hour)
	_, err = store.Get(ctx, "tok-1")
	require.ErrorIs(t, err, domainauth.ErrSessionNotFound)
	require.Empty(t, store.sessions)

	require.NoError(t, store.Delete(ctx, "never-issued"))
}
