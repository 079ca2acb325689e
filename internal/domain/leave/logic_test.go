package leave

import (
	"errors"
	"testing"
	"time"

	"hrms/internal/domain/holidays"
)

func date(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCalculateRequestDays(t *testing.T) {
	// 2026-03-02 is a Monday; 2026-03-04 is a holiday.
	cal := holidays.NewCalendar([]holidays.Holiday{{Date: date("2026-03-04"), Name: "Festival"}})

	tests := []struct {
		name      string
		start     string
		end       string
		startHalf bool
		endHalf   bool
		want      float64
		wantErr   error
	}{
		{name: "single day", start: "2026-03-02", end: "2026-03-02", want: 1},
		{name: "week skips holiday", start: "2026-03-02", end: "2026-03-06", want: 4},
		{name: "spans weekend", start: "2026-03-05", end: "2026-03-09", want: 3},
		{name: "half start", start: "2026-03-02", end: "2026-03-03", startHalf: true, want: 1.5},
		{name: "half both ends", start: "2026-03-02", end: "2026-03-03", startHalf: true, endHalf: true, want: 1},
		{name: "half single day", start: "2026-03-02", end: "2026-03-02", startHalf: true, want: 0.5},
		{name: "afternoon off single day", start: "2026-03-02", end: "2026-03-02", endHalf: true, want: 0.5},
		{name: "half on holiday boundary ignored", start: "2026-03-03", end: "2026-03-04", endHalf: true, want: 1},
		{name: "weekend only", start: "2026-03-07", end: "2026-03-08", wantErr: ErrNoWorkingDays},
		{name: "reversed", start: "2026-03-06", end: "2026-03-02", wantErr: ErrInvalidRange},
		{name: "same day both halves", start: "2026-03-02", end: "2026-03-02", startHalf: true, endHalf: true, wantErr: ErrInvalidRange},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := CalculateRequestDays(cal, date(tc.start), date(tc.end), tc.startHalf, tc.endHalf)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %.1f days, got %.1f", tc.want, got)
			}
		})
	}
}
