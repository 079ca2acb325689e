package leave

import (
	"time"

	"hrms/internal/domain/holidays"
)

// CalculateRequestDays counts working days in [start, end], excluding
// weekends and holidays. A half flag removes half a day from that boundary
// when the boundary itself is a working day.
func CalculateRequestDays(cal holidays.Calendar, start, end time.Time, startHalf, endHalf bool) (float64, error) {
	if end.Before(start) {
		return 0, ErrInvalidRange
	}
	if start.Equal(end) && startHalf && endHalf {
		return 0, ErrInvalidRange
	}

	days := float64(cal.CountWorkingDays(start, end))
	if startHalf && cal.IsWorkingDay(start) {
		days -= 0.5
	}
	// On a single day either flag means half a day; both are rejected above.
	if endHalf && cal.IsWorkingDay(end) {
		days -= 0.5
	}
	if days <= 0 {
		return 0, ErrNoWorkingDays
	}
	return days, nil
}
