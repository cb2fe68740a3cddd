package support

import "time"

// Clock returns the current instant. The zero value reads the wall clock.
type Clock func() time.Time

func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// Location falls back to UTC when loc is nil.
func Location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
