package attendance

import (
	"testing"
	"time"

	"hrms/internal/domain/holidays"
)

func testRules() Rules {
	return Rules{OfficeStartHour: 9, OfficeStartMinute: 30, LateGrace: 15 * time.Minute, HalfDayHours: 4, FullDayHours: 8}
}

func TestCheckInStatus(t *testing.T) {
	rules := testRules()
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "early", at: time.Date(2024, 4, 1, 8, 55, 0, 0, time.UTC), want: StatusPresent},
		{name: "within grace", at: time.Date(2024, 4, 1, 9, 45, 0, 0, time.UTC), want: StatusPresent},
		{name: "after grace", at: time.Date(2024, 4, 1, 9, 45, 1, 0, time.UTC), want: StatusLate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := rules.CheckInStatus(tc.at); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestFinalStatus(t *testing.T) {
	rules := testRules()
	if got := rules.FinalStatus(StatusLate, 3.5); got != StatusHalfDay {
		t.Fatalf("expected half_day, got %s", got)
	}
	if got := rules.FinalStatus(StatusLate, 8); got != StatusLate {
		t.Fatalf("expected late, got %s", got)
	}
	if got := rules.FinalStatus(StatusPresent, 4); got != StatusPresent {
		t.Fatalf("expected present, got %s", got)
	}
}

func TestWorkedHours(t *testing.T) {
	in := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	if got := WorkedHours(in, in.Add(8*time.Hour+20*time.Minute)); got != 8.33 {
		t.Fatalf("expected 8.33, got %v", got)
	}
	if got := WorkedHours(in, in.Add(-time.Hour)); got != 0 {
		t.Fatalf("expected 0 for inverted times, got %v", got)
	}
}

func TestSummarize(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 4, d, 0, 0, 0, 0, time.UTC) }
	// April 2024: the 1st is a Monday.
	records := []Record{
		{WorkDate: day(1), Status: StatusPresent, WorkMode: ModeOffice},
		{WorkDate: day(2), Status: StatusLate, WorkMode: ModeWFH},
		{WorkDate: day(3), Status: StatusHalfDay, WorkMode: ModeOffice},
		{WorkDate: day(6), Status: StatusPresent, WorkMode: ModeOffice},
	}
	cal := holidays.NewCalendar([]holidays.Holiday{{Date: day(4), Name: "Founders Day"}})
	leaves := []LeaveSpan{{Start: day(8), End: day(9)}}

	sum := testRules().Summarize(records, cal, leaves, day(1), day(12), day(10))

	want := Summary{WorkingDays: 9, Present: 1, Late: 1, HalfDay: 1, OnLeave: 2, Absent: 2, WFH: 1, Holidays: 1}
	if sum != want {
		t.Fatalf("unexpected summary:\n got  %+v\n want %+v", sum, want)
	}
}

func TestSummarizeShortDaysAndOvertime(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 4, d, 0, 0, 0, 0, time.UTC) }
	out := time.Date(2024, 4, 1, 18, 0, 0, 0, time.UTC)
	records := []Record{
		{WorkDate: day(1), Status: StatusPresent, CheckOutAt: &out, WorkedHours: 9.5},
		{WorkDate: day(2), Status: StatusLate, CheckOutAt: &out, WorkedHours: 6},
		{WorkDate: day(3), Status: StatusHalfDay, CheckOutAt: &out, WorkedHours: 3},
		{WorkDate: day(4), Status: StatusPresent, CheckOutAt: &out, WorkedHours: 8},
		{WorkDate: day(5), Status: StatusPresent, CheckOutAt: &out, WorkedHours: 8.25},
		// Still checked in: hours are not final yet.
		{WorkDate: day(8), Status: StatusPresent, WorkedHours: 0},
	}

	tests := []struct {
		name      string
		rules     Rules
		wantShort int
		wantOver  float64
	}{
		{name: "eight hour day", rules: testRules(), wantShort: 1, wantOver: 1.75},
		{name: "full day unset", rules: Rules{HalfDayHours: 4}, wantShort: 0, wantOver: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sum := tc.rules.Summarize(records, holidays.NewCalendar(nil), nil, day(1), day(8), day(8))
			if sum.ShortDays != tc.wantShort || sum.OvertimeHours != tc.wantOver {
				t.Fatalf("expected %d short days and %v overtime hours, got %d and %v",
					tc.wantShort, tc.wantOver, sum.ShortDays, sum.OvertimeHours)
			}
		})
	}
}
