package outbox

import (
	"context"
	"log/slog"
)

// LogProducer stands in for the broker when no Kafka brokers are configured.
type LogProducer struct {
	Logger *slog.Logger
}

func (p LogProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if p.Logger != nil {
		p.Logger.InfoContext(ctx, "event published", "topic", topic, "key", key, "type", headers["ce-type"], "bytes", len(payload))
	}
	return nil
}
