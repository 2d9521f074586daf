// Package timerange models the daily operating window and half-open
// wall-clock intervals expressed as zero-padded HH:MM strings.
//
// Clock strings are compared lexicographically. That ordering matches
// chronological ordering only because every value is two-digit hour and
// minute and no interval crosses midnight.
package timerange

import (
	"errors"
	"fmt"
	"time"
)

const (
	ClockLayout = "15:04"
	DateLayout  = "2006-01-02"

	OpenAt       = "08:00"
	CloseAt      = "18:00"
	SlotDuration = 30 * time.Minute
	SlotsPerDay  = 20
)

var (
	ErrInvalidClock = errors.New("invalid time of day; expected HH:MM")
	ErrEmptyRange   = errors.New("start time must be before end time")
)

// Range is a half-open interval [Start, End) within a single day.
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// New validates both clocks and requires Start < End.
func New(start, end string) (Range, error) {
	if !ValidClock(start) {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidClock, start)
	}
	if !ValidClock(end) {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidClock, end)
	}
	if start >= end {
		return Range{}, ErrEmptyRange
	}
	return Range{Start: start, End: end}, nil
}

// ValidClock reports whether s is a zero-padded 24h HH:MM value.
func ValidClock(s string) bool {
	if len(s) != 5 {
		return false
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return false
	}
	return t.Format(ClockLayout) == s
}

// Slot returns the i-th slot of the operating day, 0-indexed.
func Slot(i int) Range {
	open, _ := time.Parse(ClockLayout, OpenAt)
	start := open.Add(time.Duration(i) * SlotDuration)
	return Range{
		Start: start.Format(ClockLayout),
		End:   start.Add(SlotDuration).Format(ClockLayout),
	}
}

// DaySlots returns every slot of the operating day in order.
func DaySlots() []Range {
	out := make([]Range, SlotsPerDay)
	for i := range out {
		out[i] = Slot(i)
	}
	return out
}

// At places clock on the calendar day of date, in date's location.
func At(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse(ClockLayout, clock)
	if err != nil || t.Format(ClockLayout) != clock {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

// Bounds returns the timestamps of r on the calendar day of date.
func (r Range) Bounds(date time.Time) (start, end time.Time, err error) {
	if start, err = At(date, r.Start); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = At(date, r.End); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// Contains reports whether clock falls within [Start, End).
func (r Range) Contains(clock string) bool {
	return clock >= r.Start && clock < r.End
}

func (r Range) String() string {
	return r.Start + "-" + r.End
}

// Day strips the time of day, keeping t's location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// UTCDay is the calendar day of t as midnight UTC. Stores persist dates in
// this form so the day survives serialisation regardless of zone.
func UTCDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay compares calendar days, ignoring time of day and zone offsets.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayKey formats the calendar day of t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar day as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}
