package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, StoreMemory, cfg.StoreDriver)
	require.Equal(t, time.UTC, cfg.Location)
	require.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	require.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	require.False(t, cfg.KafkaEnabled())
	require.False(t, cfg.RedisEnabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("RENTAL_TIMEZONE", "Europe/Berlin")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("IDEMPOTENCY_TTL", "2h")
	t.Setenv("S3_ENDPOINT", "minio:9000")

	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	require.Equal(t, StoreMongo, cfg.StoreDriver)
	require.Equal(t, "Europe/Berlin", cfg.Location.String())
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 2*time.Hour, cfg.IdempotencyTTL)
	require.Equal(t, "minio:9000", cfg.S3PublicEndpoint)
	require.True(t, cfg.KafkaEnabled())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "mongo without uri", env: map[string]string{"STORE_DRIVER": "mongo"}},
		{name: "unknown driver", env: map[string]string{"STORE_DRIVER": "postgres"}},
		{name: "unknown timezone", env: map[string]string{"RENTAL_TIMEZONE": "Mars/Olympus"}},
		{name: "bad backoff", env: map[string]string{"OUTBOX_RETRY_BACKOFF": "1s,soon"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadFrom(viper.New())
			require.Error(t, err)
		})
	}
}
