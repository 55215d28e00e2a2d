package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate validates a YYYY-MM-DD date string against the venue location
// and returns midnight of that day.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return d, nil
}

// ParseClock parses an HH:MM wall-clock string into minutes from midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes from midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// SlotEndTime returns the instant a slot ends on the given date in the
// venue location.
func SlotEndTime(date string, endMin int, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(endMin) * time.Minute), nil
}
