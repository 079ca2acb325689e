package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"hrms/internal/domain/attendance"
	"hrms/internal/domain/leave"
	"hrms/internal/platform/jobs"
)

type fakeStore struct {
	StoreAPI
	people    []Person
	headcount []HeadcountRow
	gotDay    time.Time
}

func (f *fakeStore) People(ctx context.Context, departmentID int64, asOf time.Time) ([]Person, error) {
	var out []Person
	for _, p := range f.people {
		if departmentID == 0 || p.Department == "Engineering" {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) Headcount(ctx context.Context) ([]HeadcountRow, error) {
	return f.headcount, nil
}

func (f *fakeStore) EmployeeDashboard(ctx context.Context, employeeID, userID int64, today time.Time) (EmployeeDashboard, error) {
	f.gotDay = today
	return EmployeeDashboard{EmployeeID: employeeID}, nil
}

type fakeAttendance struct {
	months []time.Time
}

func (f *fakeAttendance) Summary(ctx context.Context, employeeID int64, month time.Time) (attendance.Summary, error) {
	f.months = append(f.months, month)
	return attendance.Summary{EmployeeID: employeeID, Month: month.Format("2006-01"), WorkingDays: 22, Present: 20, Absent: 2}, nil
}

type fakeLeave struct{}

func (fakeLeave) BalanceReport(ctx context.Context) ([]leave.BalanceReportRow, error) {
	return []leave.BalanceReportRow{{EmployeeID: 1, LeaveTypeCode: "CL", Balance: 6}}, nil
}

func (fakeLeave) UsageReport(ctx context.Context, from, to time.Time) ([]leave.UsageReportRow, error) {
	return []leave.UsageReportRow{{LeaveTypeCode: "CL", Requests: 2, Days: 3}}, nil
}

type fakeJobs struct{}

func (fakeJobs) ListRuns(ctx context.Context, jobType string, limit int) ([]jobs.Run, error) {
	return []jobs.Run{{ID: 1, JobType: jobType, Status: "completed"}}, nil
}

func newTestService(store *fakeStore, att *fakeAttendance) *Service {
	svc := NewService(store, att, fakeLeave{}, fakeJobs{})
	svc.Now = func() time.Time { return time.Date(2026, 3, 18, 22, 30, 0, 0, time.UTC) }
	return svc
}

func TestTotalsExcludesTerminated(t *testing.T) {
	hc := Totals([]HeadcountRow{
		{DepartmentName: "Engineering", Active: 10, OnLeave: 2, Terminated: 3},
		{DepartmentName: "Finance", Active: 4, Terminated: 1},
	})
	if hc.Total != 16 || hc.Active != 14 || hc.OnLeave != 2 || hc.Terminated != 4 {
		t.Fatalf("unexpected totals: %+v", hc)
	}
	if empty := Totals(nil); empty.Departments == nil {
		t.Fatal("expected empty department slice")
	}
}

func TestEmployeeDashboardRequiresProfile(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeAttendance{})
	if _, err := svc.EmployeeDashboard(context.Background(), 0, 5); !errors.Is(err, ErrNoEmployee) {
		t.Fatalf("expected ErrNoEmployee, got %v", err)
	}
	if _, err := svc.EmployeeDashboard(context.Background(), 3, 5); err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !store.gotDay.Equal(time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected truncated day, got %v", store.gotDay)
	}
}

func TestAttendanceReport(t *testing.T) {
	store := &fakeStore{people: []Person{
		{EmployeeID: 1, EmployeeCode: "E001", Name: "Asha Rao", Department: "Engineering"},
		{EmployeeID: 2, EmployeeCode: "E002", Name: "Vikram, Jr.", Department: "Finance"},
	}}
	att := &fakeAttendance{}
	svc := newTestService(store, att)

	rows, err := svc.AttendanceReport(context.Background(), time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), 0)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(rows) != 2 || rows[1].EmployeeCode != "E002" || rows[1].Present != 20 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if !att.months[0].Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected month start, got %v", att.months[0])
	}

	if _, err := svc.AttendanceReport(context.Background(), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), 0); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod for future month, got %v", err)
	}

	var buf bytes.Buffer
	if err := WriteAttendanceCSV(&buf, rows); err != nil {
		t.Fatalf("csv: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 || records[0][0] != "employee_code" {
		t.Fatalf("unexpected csv: %v", records)
	}
	if records[2][1] != "Vikram, Jr." || records[2][3] != "2026-02" || records[2][8] != "2" {
		t.Fatalf("unexpected csv row: %v", records[2])
	}
}

func TestLeaveReportRejectsInvertedRange(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeAttendance{})
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.LeaveReport(context.Background(), from, from.AddDate(0, 0, -1)); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	report, err := svc.LeaveReport(context.Background(), from, from.AddDate(0, 1, -1))
	if err != nil {
		t.Fatalf("leave report: %v", err)
	}
	if len(report.Usage) != 1 || len(report.Balances) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}
