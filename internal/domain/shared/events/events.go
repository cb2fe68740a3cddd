package events

import "time"

// DomainEvent is a fact recorded by an aggregate and relayed through the outbox.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Recorder collects events raised by an aggregate until they are persisted.
type Recorder struct {
	pending []DomainEvent
}

func (r *Recorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

// PendingEvents returns a copy of the events raised since the last Clear.
func (r *Recorder) PendingEvents() []DomainEvent {
	if len(r.pending) == 0 {
		return nil
	}
	return append([]DomainEvent(nil), r.pending...)
}

func (r *Recorder) ClearEvents() {
	r.pending = nil
}

// Meta carries the envelope fields shared by every event in the system.
type Meta struct {
	Name      string    `json:"-"`
	Aggregate string    `json:"aggregate_id"`
	At        time.Time `json:"occurred_at"`
}

func NewMeta(name, aggregate string, at time.Time) Meta {
	return Meta{Name: name, Aggregate: aggregate, At: at.UTC()}
}

func (m Meta) EventName() string     { return m.Name }
func (m Meta) AggregateID() string   { return m.Aggregate }
func (m Meta) OccurredAt() time.Time { return m.At }
