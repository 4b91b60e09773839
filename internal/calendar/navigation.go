package calendar

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// StartOfMonth returns midnight on the first day of t's month in t's location.
func StartOfMonth(t time.Time) time.Time {
	year, month, _ := t.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
}

// ShiftMonth moves the displayed month by delta months. The result is always
// the first of a month, so stepping from January 31 lands on February 1.
func ShiftMonth(reference time.Time, delta int) time.Time {
	year, month, _ := reference.Date()
	return time.Date(year, month+time.Month(delta), 1, 0, 0, 0, 0, reference.Location())
}

// MonthRange returns the half-open interval [first, next first) covering the
// month of reference.
func MonthRange(reference time.Time) (time.Time, time.Time) {
	start := StartOfMonth(reference)
	return start, ShiftMonth(start, 1)
}

// ParseMonth reads a YYYY-MM value as the first day of that month in loc.
func ParseMonth(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(monthLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse month %q: %w", value, err)
	}
	return t, nil
}

// FormatMonth renders the YYYY-MM form accepted by ParseMonth.
func FormatMonth(t time.Time) string {
	return t.Format(monthLayout)
}
