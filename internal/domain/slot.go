package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04"
)

// TimeOfDay is a wall-clock time at minute granularity in canonical "HH:MM"
// form. The canonical form sorts lexically in chronological order.
type TimeOfDay string

func (t TimeOfDay) String() string {
	return string(t)
}

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int {
	parsed, err := time.Parse(TimeOfDayLayout, string(t))
	if err != nil {
		return 0
	}
	return parsed.Hour()*60 + parsed.Minute()
}

// ParseDate parses an ISO-8601 calendar date and returns it as midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("date is required")
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", raw)
	}
	return d, nil
}

// ParseTimeOfDay parses a 24-hour "HH:MM" time. Both fields must be two digits.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("time is required")
	}
	t, err := time.Parse(TimeOfDayLayout, raw)
	if err != nil || len(raw) != len(TimeOfDayLayout) {
		return "", fmt.Errorf("invalid time %q, use HH:MM", raw)
	}
	return TimeOfDay(t.Format(TimeOfDayLayout)), nil
}

// DateOf truncates t to its calendar date, as seen in t's location, and
// returns it as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SlotStart combines a calendar date and a time of day into one instant in loc.
func SlotStart(date time.Time, tod TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	minutes := tod.Minutes()
	y, m, d := date.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, loc)
}

// FormatDate renders a calendar date in DateLayout.
func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}
