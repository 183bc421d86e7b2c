package timeutil

import (
	"fmt"
	"strings"
	"time"
)

var defaultLocation = time.UTC

// ResolveLocation returns the named location with UTC fallback.
func ResolveLocation(timezone string) (*time.Location, bool) {
	if timezone == "" {
		return defaultLocation, true
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return defaultLocation, true
	}
	return loc, false
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3PM",
	"3 PM",
}

// ParseDateAndClock combines a "YYYY-MM-DD" date and a clock time into one instant in loc.
// Both parts are required; a missing part is an error, never a guess.
func ParseDateAndClock(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.ToUpper(strings.TrimSpace(clock))
	if date == "" {
		return time.Time{}, fmt.Errorf("date value is required")
	}
	if clock == "" {
		return time.Time{}, fmt.Errorf("time value is required")
	}
	if loc == nil {
		loc = defaultLocation
	}

	d, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date: %s", date)
	}

	for _, layout := range clockLayouts {
		if c, err := time.Parse(layout, clock); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time: %s", clock)
}

// ParseDate parses a "YYYY-MM-DD" date as midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, fmt.Errorf("date value is required")
	}
	if loc == nil {
		loc = defaultLocation
	}
	d, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date: %s", date)
	}
	return d, nil
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = defaultLocation
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// ParseDateTime parses a datetime in either RFC3339 (with explicit offset) or local layouts in loc.
func ParseDateTime(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("time value is required")
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = defaultLocation
	}

	layouts := []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time: %s", value)
}

// FormatDate renders the date part the way replies and sheet rows show it.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatClock renders the 24h clock part the way replies and sheet rows show it.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}
