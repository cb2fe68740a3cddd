package memory

import (
	"context"
	"time"

	infraoutbox "rentwheels/internal/infra/outbox"
)

// OutboxStore exposes the committed outbox of a Store to the relay worker.
type OutboxStore struct {
	Store *Store
}

func (o OutboxStore) Claim(ctx context.Context, workerID string, now time.Time) (*infraoutbox.Message, error) {
	s := o.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.outbox {
		if msg.State != infraoutbox.StateNew && msg.State != infraoutbox.StateFailed {
			continue
		}
		if msg.NextAttempt.After(now) {
			continue
		}
		msg.State = infraoutbox.StateClaimed
		claimed := *msg
		return &claimed, nil
	}
	return nil, nil
}

func (o OutboxStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	return o.update(id, func(msg *infraoutbox.Message) {
		msg.State = infraoutbox.StateSent
		msg.LastError = ""
	})
}

func (o OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return o.update(id, func(msg *infraoutbox.Message) {
		msg.State = infraoutbox.StateFailed
		msg.Attempts++
		msg.NextAttempt = next
		msg.LastError = errMsg
	})
}

// Pending counts messages not yet delivered.
func (o OutboxStore) Pending() int {
	s := o.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, msg := range s.outbox {
		if msg.State != infraoutbox.StateSent {
			n++
		}
	}
	return n
}

func (o OutboxStore) update(id string, fn func(*infraoutbox.Message)) error {
	s := o.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.outbox {
		if msg.ID == id {
			fn(msg)
			return nil
		}
	}
	return nil
}

var _ infraoutbox.Store = OutboxStore{}
