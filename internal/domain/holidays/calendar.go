package holidays

import "time"

// Calendar answers working-day questions for a fixed set of holiday dates.
// Optional holidays are not days off.
type Calendar struct {
	off map[string]bool
}

func NewCalendar(items []Holiday) Calendar {
	off := make(map[string]bool, len(items))
	for _, h := range items {
		if h.Optional {
			continue
		}
		off[h.Date.Format("2006-01-02")] = true
	}
	return Calendar{off: off}
}

func IsWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (c Calendar) IsHoliday(day time.Time) bool {
	return c.off[day.Format("2006-01-02")]
}

func (c Calendar) IsWorkingDay(day time.Time) bool {
	return !IsWeekend(day) && !c.IsHoliday(day)
}

// WorkingDays lists working days in the inclusive range, at midnight UTC.
func (c Calendar) WorkingDays(from, to time.Time) []time.Time {
	from = truncate(from)
	to = truncate(to)
	var out []time.Time
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if c.IsWorkingDay(day) {
			out = append(out, day)
		}
	}
	return out
}

func (c Calendar) CountWorkingDays(from, to time.Time) int {
	return len(c.WorkingDays(from, to))
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
