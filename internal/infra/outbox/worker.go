package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	appoutbox "rentwheels/internal/app/outbox"
)

const (
	StateNew     = "NEW"
	StateClaimed = "CLAIMED"
	StateSent    = "SENT"
	StateFailed  = "FAILED"
)

// Message is a committed outbox record as the relay sees it.
type Message struct {
	appoutbox.EventRecord
	State       string
	Attempts    int
	NextAttempt time.Time
	LastError   string
}

// Store is the relay's view of the outbox table.
type Store interface {
	// Claim locks the next due message for workerID, returning nil when none is due.
	Claim(ctx context.Context, workerID string, now time.Time) (*Message, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker relays committed outbox messages to the broker as CloudEvents.
type Worker struct {
	Store     Store
	Producer  Producer
	Topic     string
	Interval  time.Duration
	BatchSize int
	Source    string
	ID        string
	Backoff   []time.Duration
	Logger    *slog.Logger

	once  sync.Once
	nudge chan struct{}
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

// Flush asks a running worker to drain the outbox now. It never blocks.
func (w *Worker) Flush(context.Context) error {
	select {
	case w.signal() <- struct{}{}:
	default:
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	nudge := w.signal()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-nudge:
		}
		if _, err := w.Drain(ctx); err != nil && ctx.Err() == nil && w.Logger != nil {
			w.Logger.Error("outbox relay failed", "error", err)
		}
	}
}

// Drain publishes up to one batch of due messages and returns how many were sent.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	sent := 0
	for i := 0; i < w.batchSize(); i++ {
		msg, err := w.Store.Claim(ctx, w.workerID(), time.Now().UTC())
		if err != nil {
			return sent, err
		}
		if msg == nil {
			return sent, nil
		}
		if err := w.publish(ctx, msg); err != nil {
			if w.Logger != nil {
				w.Logger.Warn("outbox publish failed", "event_id", msg.ID, "event", msg.Name, "attempts", msg.Attempts+1, "error", err)
			}
			if err := w.Store.MarkFailed(ctx, msg.ID, w.nextRetry(msg.Attempts), err.Error()); err != nil {
				return sent, err
			}
			continue
		}
		if err := w.Store.MarkSent(ctx, msg.ID, time.Now().UTC()); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (w *Worker) publish(ctx context.Context, msg *Message) error {
	payload, headers, err := w.formatPayload(msg)
	if err != nil {
		return err
	}
	return w.Producer.Publish(ctx, w.Topic, msg.Aggregate, payload, headers)
}

func (w *Worker) formatPayload(msg *Message) ([]byte, map[string]string, error) {
	var data map[string]any
	if err := json.Unmarshal(msg.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              msg.ID,
		"type":            msg.Name + ".v1",
		"source":          w.source(),
		"subject":         msg.Aggregate,
		"time":            msg.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
		"ce-type":      msg.Name + ".v1",
	}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

func (w *Worker) signal() chan struct{} {
	w.once.Do(func() { w.nudge = make(chan struct{}, 1) })
	return w.nudge
}

func (w *Worker) workerID() string {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return w.ID
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 100
	}
	return w.BatchSize
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://rentwheels"
}

var _ appoutbox.Flusher = (*Worker)(nil)
