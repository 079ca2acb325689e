package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"hrms/internal/domain/holidays"
)

func TestRate(t *testing.T) {
	tests := []struct {
		compliant, total int
		want             float64
	}{
		{0, 0, 0},
		{3, 3, 1},
		{2, 3, 0.6667},
		{1, 7, 0.1429},
	}
	for _, tc := range tests {
		if got := Rate(tc.compliant, tc.total); got != tc.want {
			t.Fatalf("Rate(%d, %d) = %v, want %v", tc.compliant, tc.total, got, tc.want)
		}
	}
}

func TestSummarizeExcludesEmployeesOnLeave(t *testing.T) {
	eng := int64(1)
	statuses := []EmployeeStatus{
		{EmployeeID: 1, EmployeeName: "Asha Rao", DepartmentID: &eng, DepartmentName: "Engineering", Compliant: true},
		{EmployeeID: 2, EmployeeName: "Ben Ortiz", DepartmentID: &eng, DepartmentName: "Engineering"},
		{EmployeeID: 3, EmployeeName: "Chen Li", DepartmentID: &eng, DepartmentName: "Engineering", OnLeave: true},
		{EmployeeID: 4, EmployeeName: "Dana Kim", Compliant: true},
	}
	dash := Summarize(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), statuses)

	if dash.Total != 3 || dash.Compliant != 2 || dash.NonCompliant != 1 || dash.OnLeave != 1 {
		t.Fatalf("unexpected counts %+v", dash)
	}
	if dash.Rate != 0.6667 {
		t.Fatalf("expected rate 0.6667, got %v", dash.Rate)
	}
	if len(dash.Missing) != 1 || dash.Missing[0].EmployeeID != 2 {
		t.Fatalf("unexpected missing list %+v", dash.Missing)
	}
	if len(dash.Departments) != 2 || dash.Departments[0].DepartmentName != "Engineering" || dash.Departments[0].Rate != 0.5 {
		t.Fatalf("unexpected departments %+v", dash.Departments)
	}
	if dash.Departments[1].DepartmentName != "Unassigned" {
		t.Fatalf("expected unassigned bucket, got %+v", dash.Departments[1])
	}
}

type fakeStore struct {
	statuses []EmployeeStatus
	calls    int
}

func (f *fakeStore) Statuses(context.Context, time.Time, int64) ([]EmployeeStatus, error) {
	f.calls++
	return f.statuses, nil
}

type staticCalendar struct{ holidays []holidays.Holiday }

func (c staticCalendar) Calendar(context.Context, time.Time, time.Time) (holidays.Calendar, error) {
	return holidays.NewCalendar(c.holidays), nil
}

type recordingNotifier struct{ employees []int64 }

func (n *recordingNotifier) NotifyEmployee(_ context.Context, employeeID int64, _, _, _ string) error {
	n.employees = append(n.employees, employeeID)
	return nil
}

func TestTrendSkipsNonWorkingDays(t *testing.T) {
	store := &fakeStore{statuses: []EmployeeStatus{{EmployeeID: 1, Compliant: true}}}
	svc := NewService(store, staticCalendar{}, nil)
	from := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	trend, err := svc.Trend(context.Background(), from, to, 0)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(trend) != 3 || store.calls != 3 {
		t.Fatalf("expected 3 working days, got %d (calls %d)", len(trend), store.calls)
	}
	if _, err := svc.Trend(context.Background(), from, from.AddDate(0, 0, 120), 0); !errors.Is(err, ErrRangeTooLarge) {
		t.Fatalf("expected ErrRangeTooLarge, got %v", err)
	}
}

func TestSendReminders(t *testing.T) {
	store := &fakeStore{statuses: []EmployeeStatus{
		{EmployeeID: 1, Compliant: true},
		{EmployeeID: 2},
		{EmployeeID: 3, OnLeave: true},
	}}
	notifier := &recordingNotifier{}
	svc := NewService(store, staticCalendar{}, notifier)
	svc.Now = func() time.Time { return time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC) }

	result, err := svc.SendReminders(context.Background())
	if err != nil {
		t.Fatalf("reminders: %v", err)
	}
	if result.Notified != 1 || len(notifier.employees) != 1 || notifier.employees[0] != 2 {
		t.Fatalf("unexpected reminder result %+v %v", result, notifier.employees)
	}

	svc.Now = func() time.Time { return time.Date(2026, 3, 7, 18, 0, 0, 0, time.UTC) }
	result, err = svc.SendReminders(context.Background())
	if err != nil || !result.Skipped {
		t.Fatalf("expected weekend skip, got %+v err=%v", result, err)
	}
}
