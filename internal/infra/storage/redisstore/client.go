package redisstore

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "rentwheels:idem:"
	sessionPrefix     = "rentwheels:session:"
)

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// Ping adapts the client to a readiness probe.
func Ping(client *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
