package booking

import (
	"regexp"
	"strings"
	"time"

	"rentwheels/internal/domain/pricing"
	"rentwheels/internal/domain/shared/daterange"
	"rentwheels/internal/domain/shared/validation"
)

const (
	DateLayout = "2006-01-02"

	MinRental = time.Hour
	MaxRental = 30 * 24 * time.Hour
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Schedule is the requested rental interval as local pickup and return wall-clock values.
type Schedule struct {
	StartDate string
	EndDate   string
	StartTime string
	EndTime   string
}

// Period is a validated schedule with its instants and billing duration.
type Period struct {
	Schedule Schedule
	Range    daterange.Range
	Duration pricing.Duration
}

// ValidateSchedule combines dates and times in loc and checks the rental rules.
// Every violated rule is reported, not only the first one.
func ValidateSchedule(s Schedule, now time.Time, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = Schedule{
		StartDate: strings.TrimSpace(s.StartDate),
		EndDate:   strings.TrimSpace(s.EndDate),
		StartTime: strings.TrimSpace(s.StartTime),
		EndTime:   strings.TrimSpace(s.EndTime),
	}

	var problems validation.Problems
	start, okStart := combine(&problems, "start", s.StartDate, s.StartTime, loc)
	end, okEnd := combine(&problems, "end", s.EndDate, s.EndTime, loc)
	if !okStart || !okEnd {
		return Period{}, problems.Err()
	}

	if !start.After(now) {
		problems.Add("start must be in the future")
	}
	if !end.After(start) {
		problems.Add("end must be after start")
	}
	length := end.Sub(start)
	if length < MinRental {
		problems.Add("rental must last at least 1 hour")
	}
	if length > MaxRental {
		problems.Add("rental cannot exceed 30 days")
	}
	if err := problems.Err(); err != nil {
		return Period{}, err
	}

	return Period{
		Schedule: s,
		Range:    daterange.Range{Start: start.UTC(), End: end.UTC()},
		Duration: durationOf(length),
	}, nil
}

// durationOf rounds up to whole hours and whole days.
func durationOf(d time.Duration) pricing.Duration {
	const day = 24 * time.Hour
	return pricing.Duration{
		Hours: int((d + time.Hour - 1) / time.Hour),
		Days:  int((d + day - 1) / day),
	}
}

func combine(problems *validation.Problems, side, date, clock string, loc *time.Location) (time.Time, bool) {
	ok := true
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		problems.Add("%sDate must be a date formatted as YYYY-MM-DD", side)
		ok = false
	}
	if !clockPattern.MatchString(clock) {
		problems.Add("%sTime must be HH:MM between 00:00 and 23:59", side)
		ok = false
	}
	if !ok {
		return time.Time{}, false
	}
	hh := int(clock[0]-'0')*10 + int(clock[1]-'0')
	mm := int(clock[3]-'0')*10 + int(clock[4]-'0')
	return time.Date(day.Year(), day.Month(), day.Day(), hh, mm, 0, 0, loc), true
}
