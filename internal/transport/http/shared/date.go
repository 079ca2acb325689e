package shared

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate accepts RFC3339 or YYYY-MM-DD.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse(DateLayout, value)
}

// ParseMonth accepts YYYY-MM and returns the first day of that month.
func ParseMonth(value string) (time.Time, error) {
	parsed, err := time.Parse("2006-01", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("month must be YYYY-MM: %w", err)
	}
	return parsed, nil
}

// DateRange reads from/to query values, defaulting to the trailing window
// of days ending today.
func DateRange(fromRaw, toRaw string, days int, now time.Time) (time.Time, time.Time, error) {
	to := Day(now)
	if toRaw != "" {
		parsed, err := ParseDate(toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = Day(parsed)
	}
	from := to.AddDate(0, 0, -(days - 1))
	if fromRaw != "" {
		parsed, err := ParseDate(fromRaw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = Day(parsed)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("from must be on or before to")
	}
	return from, to, nil
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
