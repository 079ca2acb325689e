package attendance

import (
	"math"
	"time"

	"hrms/internal/domain/holidays"
)

// Rules holds the office policy used to derive a day's status.
type Rules struct {
	OfficeStartHour   int
	OfficeStartMinute int
	LateGrace         time.Duration
	HalfDayHours      float64
	FullDayHours      float64
	Location          *time.Location
}

func (r Rules) loc() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// WorkDate is the calendar day of t in the office time zone, at midnight UTC.
func (r Rules) WorkDate(t time.Time) time.Time {
	local := t.In(r.loc())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// CheckInStatus is late when the check-in falls after office start plus grace.
func (r Rules) CheckInStatus(at time.Time) string {
	local := at.In(r.loc())
	cutoff := time.Date(local.Year(), local.Month(), local.Day(), r.OfficeStartHour, r.OfficeStartMinute, 0, 0, r.loc()).Add(r.LateGrace)
	if local.After(cutoff) {
		return StatusLate
	}
	return StatusPresent
}

// FinalStatus applies the half-day threshold once worked hours are known.
func (r Rules) FinalStatus(checkInStatus string, workedHours float64) string {
	if r.HalfDayHours > 0 && workedHours < r.HalfDayHours {
		return StatusHalfDay
	}
	return checkInStatus
}

func WorkedHours(in, out time.Time) float64 {
	if !out.After(in) {
		return 0
	}
	return math.Round(out.Sub(in).Hours()*100) / 100
}

// Summarize counts the working days of [from, to] using records keyed by
// date. Days after today are skipped. Checked-out present or late days are
// measured against FullDayHours for short days and overtime.
func (r Rules) Summarize(records []Record, cal holidays.Calendar, leaves []LeaveSpan, from, to, today time.Time) Summary {
	byDay := make(map[string]Record, len(records))
	for _, rec := range records {
		byDay[rec.WorkDate.Format("2006-01-02")] = rec
	}

	var sum Summary
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if holidays.IsWeekend(day) {
			continue
		}
		if cal.IsHoliday(day) {
			sum.Holidays++
			continue
		}
		sum.WorkingDays++
		if day.After(today) {
			continue
		}
		rec, ok := byDay[day.Format("2006-01-02")]
		switch {
		case ok && rec.Status != StatusAbsent:
			countStatus(&sum, rec)
			r.measureHours(&sum, rec)
		case onLeave(leaves, day):
			sum.OnLeave++
		default:
			sum.Absent++
		}
	}
	sum.OvertimeHours = math.Round(sum.OvertimeHours*100) / 100
	return sum
}

func (r Rules) measureHours(sum *Summary, rec Record) {
	if r.FullDayHours <= 0 || rec.CheckOutAt == nil {
		return
	}
	if rec.Status != StatusPresent && rec.Status != StatusLate {
		return
	}
	switch {
	case rec.WorkedHours < r.FullDayHours:
		sum.ShortDays++
	case rec.WorkedHours > r.FullDayHours:
		sum.OvertimeHours += rec.WorkedHours - r.FullDayHours
	}
}

func countStatus(sum *Summary, rec Record) {
	switch rec.Status {
	case StatusLate:
		sum.Late++
	case StatusHalfDay:
		sum.HalfDay++
	case StatusOnLeave:
		sum.OnLeave++
		return
	default:
		sum.Present++
	}
	if rec.WorkMode == ModeWFH {
		sum.WFH++
	}
}

func onLeave(leaves []LeaveSpan, day time.Time) bool {
	for _, span := range leaves {
		if !day.Before(span.Start) && !day.After(span.End) {
			return true
		}
	}
	return false
}
