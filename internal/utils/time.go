package contextutils

import (
	"time"
)

// DateLayout is the wire format for calendar days (acts, plans, time entries).
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string as a UTC calendar day.
func ParseDate(dateStr string) (time.Time, error) {
	date, err := time.ParseInLocation(DateLayout, dateStr, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidFormat.With("invalid date "+dateStr, err)
	}
	return date, nil
}

// TruncateToDay drops the clock part of t in UTC.
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateDateRange rejects ranges whose end precedes their start.
func ValidateDateRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return NewInvalidInputf("end date %s is before start date %s", end.Format(DateLayout), start.Format(DateLayout))
	}
	return nil
}
