package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/streaks/internal/constants"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// Empty and "UTC" both resolve to UTC; "Local" resolves to the system zone.
func LoadLocation(timezone string) (*time.Location, error) {
	switch timezone {
	case "", "UTC":
		return time.UTC, nil
	case "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return loc, nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// FormatTimestamp renders t in the persisted timestamp layout (UTC, fixed width).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(constants.TimestampFormat)
}

// ParseTimestamp parses a persisted timestamp. RFC3339 values written by other
// tools are accepted as well.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(constants.TimestampFormat, s)
	if err == nil {
		return t, nil
	}
	t, rfcErr := time.Parse(time.RFC3339Nano, s)
	if rfcErr != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatDate renders the calendar date of t (YYYY-MM-DD) in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// ParseDateInLocation parses a date string (YYYY-MM-DD) in the specified timezone.
func ParseDateInLocation(dateStr string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, dateStr)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}
