// Package timenorm converts between the local calendar representation providers
// type in (a date plus an HH:MM wall-clock time) and the UTC instants that are
// stored, compared and sorted everywhere else.
package timenorm

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	// embedded zone database for minimal container images
	_ "time/tzdata"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	// EndOfDay is accepted only as the end bound of an interval and stands for
	// midnight at the start of the following day.
	EndOfDay = "24:00"
)

var (
	ErrInvalidTimeFormat = errors.New("time must be HH:MM in 24-hour format")
	ErrInvalidDate       = errors.New("date must be a real calendar date in YYYY-MM-DD format")
	ErrInvalidInterval   = errors.New("end must be strictly after start")
)

var (
	clockRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	dateRegex  = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
)

// Normalizer is bound to a single reference zone. It holds no other state and is
// safe for concurrent use.
type Normalizer struct {
	loc *time.Location
}

func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

func NewFromName(name string) (*Normalizer, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", name, err)
	}
	return New(loc), nil
}

func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// ParseDate returns local midnight of the given calendar date.
func (n *Normalizer) ParseDate(date string) (time.Time, error) {
	if !dateRegex.MatchString(date) {
		return time.Time{}, ErrInvalidDate
	}
	day, err := time.ParseInLocation(DateLayout, date, n.loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return day, nil
}

// ToInstant resolves a local date and wall-clock time to a UTC instant.
// Wall-clock times skipped by a daylight-saving jump do not exist in the
// reference zone and are rejected.
func (n *Normalizer) ToInstant(date, clock string) (time.Time, error) {
	if !clockRegex.MatchString(clock) {
		return time.Time{}, ErrInvalidTimeFormat
	}
	day, err := n.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}

	hour := int(clock[0]-'0')*10 + int(clock[1]-'0')
	minute := int(clock[3]-'0')*10 + int(clock[4]-'0')

	local := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, n.loc)
	if local.Hour() != hour || local.Minute() != minute || local.Day() != day.Day() {
		return time.Time{}, fmt.Errorf("%w: %s %s does not exist in %s", ErrInvalidTimeFormat, date, clock, n.loc)
	}
	return local.UTC(), nil
}

// ToLocalParts is the inverse of ToInstant at minute precision.
func (n *Normalizer) ToLocalParts(instant time.Time) (date string, clock string) {
	local := instant.In(n.loc)
	return local.Format(DateLayout), local.Format(ClockLayout)
}

// EndInstant resolves the end bound of an interval on date. It accepts
// EndOfDay in addition to everything ToInstant accepts.
func (n *Normalizer) EndInstant(date, clock string) (time.Time, error) {
	if clock != EndOfDay {
		return n.ToInstant(date, clock)
	}
	day, err := n.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return n.ToInstant(day.AddDate(0, 0, 1).Format(DateLayout), "00:00")
}

// EndClock formats the end bound of an interval that starts on date. An end
// at the following local midnight is rendered as EndOfDay.
func (n *Normalizer) EndClock(date string, end time.Time) string {
	endDate, clock := n.ToLocalParts(end)
	if clock == "00:00" && endDate != date {
		return EndOfDay
	}
	return clock
}

// Interval resolves both bounds of a same-day window. The end may be EndOfDay.
// A window that would cross midnight has end <= start and is rejected as an
// invalid interval.
func (n *Normalizer) Interval(date, startClock, endClock string) (time.Time, time.Time, error) {
	start, err := n.ToInstant(date, startClock)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := n.EndInstant(date, endClock)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, ErrInvalidInterval
	}
	return start, end, nil
}

// Overlaps reports whether the half-open intervals [startA, endA) and
// [startB, endB) share at least one instant. Touching intervals do not overlap.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return startA.Before(endB) && startB.Before(endA)
}

func DurationHours(start, end time.Time) (float64, error) {
	if !start.Before(end) {
		return 0, ErrInvalidInterval
	}
	return end.Sub(start).Hours(), nil
}
