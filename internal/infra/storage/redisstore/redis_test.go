package redisstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rentwheels/internal/app/middleware"
	domainauth "rentwheels/internal/domain/auth"
	domainuser "rentwheels/internal/domain/user"
)

func testClient(t *testing.T) *SessionStore {
	t.Helper()
	addr := os.Getenv("RENTWHEELS_REDIS_ADDR")
	if addr == "" {
		t.Skip("RENTWHEELS_REDIS_ADDR not set; skipping integration test")
	}
	client := NewClient(addr, "", 0)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, Ping(client)(context.Background()))
	return NewSessionStore(client)
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store := testClient(t)
	ctx := context.Background()

	owner := &domainuser.User{ID: "u-1", Roles: []domainuser.Role{domainuser.RoleOwner}}
	token := domainauth.Token(fmt.Sprintf("tok-%d", time.Now().UnixNano()))
	session, err := domainauth.NewSession(token, owner, time.Minute, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, token)
	require.NoError(t, err)
	require.Equal(t, owner.ID, got.UserID)
	require.Equal(t, owner.Roles, got.Roles)

	require.NoError(t, store.Delete(ctx, token))
	_, err = store.Get(ctx, token)
	require.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestIdempotencyStoreRoundTrip(t *testing.T) {
	sessions := testClient(t)
	store := NewIdempotencyStore(sessions.client, time.Minute)
	ctx := context.Background()

	key := fmt.Sprintf("bookings.create:u-1:%d", time.Now().UnixNano())
	_, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: key, Payload: []byte(`{"id":"b-1"}`), CreatedAt: time.Now().UTC()}))
	rec, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `{"id":"b-1"}`, string(rec.Payload))
}
