package daterange

import (
	"errors"
	"time"
)

var ErrEndBeforeStart = errors.New("daterange: end precedes start")

// Range is a closed interval of instants: both endpoints belong to it.
type Range struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (Range, error) {
	if end.Before(start) {
		return Range{}, ErrEndBeforeStart
	}
	return Range{Start: start.UTC(), End: end.UTC()}, nil
}

// Overlaps reports whether two ranges share at least one instant.
// Touching endpoints count as an overlap.
func (r Range) Overlaps(other Range) bool {
	return !r.Start.After(other.End) && !r.End.Before(other.Start)
}

func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

func (r Range) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func (r Range) String() string {
	return r.Start.Format(time.RFC3339) + "/" + r.End.Format(time.RFC3339)
}
