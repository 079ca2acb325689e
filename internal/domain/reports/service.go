package reports

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"hrms/internal/domain/attendance"
	"hrms/internal/domain/leave"
	"hrms/internal/platform/jobs"
)

var (
	ErrNoEmployee    = errors.New("user has no employee profile")
	ErrInvalidPeriod = errors.New("invalid report period")
)

type AttendanceSummarizer interface {
	Summary(ctx context.Context, employeeID int64, month time.Time) (attendance.Summary, error)
}

type LeaveReporter interface {
	BalanceReport(ctx context.Context) ([]leave.BalanceReportRow, error)
	UsageReport(ctx context.Context, from, to time.Time) ([]leave.UsageReportRow, error)
}

type JobHistory interface {
	ListRuns(ctx context.Context, jobType string, limit int) ([]jobs.Run, error)
}

type LeaveReport struct {
	From     time.Time                `json:"from"`
	To       time.Time                `json:"to"`
	Usage    []leave.UsageReportRow   `json:"usage"`
	Balances []leave.BalanceReportRow `json:"balances"`
}

type Service struct {
	Store      StoreAPI
	Attendance AttendanceSummarizer
	Leave      LeaveReporter
	Jobs       JobHistory
	Now        func() time.Time
}

func NewService(store StoreAPI, attendance AttendanceSummarizer, leave LeaveReporter, jobs JobHistory) *Service {
	return &Service{Store: store, Attendance: attendance, Leave: leave, Jobs: jobs, Now: time.Now}
}

func (s *Service) today() time.Time {
	now := s.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) EmployeeDashboard(ctx context.Context, employeeID, userID int64) (EmployeeDashboard, error) {
	if employeeID == 0 {
		return EmployeeDashboard{}, ErrNoEmployee
	}
	return s.Store.EmployeeDashboard(ctx, employeeID, userID, s.today())
}

func (s *Service) ManagerDashboard(ctx context.Context, managerID int64) (ManagerDashboard, error) {
	if managerID == 0 {
		return ManagerDashboard{}, ErrNoEmployee
	}
	return s.Store.ManagerDashboard(ctx, managerID, s.today())
}

func (s *Service) HRDashboard(ctx context.Context) (HRDashboard, error) {
	return s.Store.HRDashboard(ctx, s.today())
}

func (s *Service) Headcount(ctx context.Context) (Headcount, error) {
	rows, err := s.Store.Headcount(ctx)
	if err != nil {
		return Headcount{}, err
	}
	return Totals(rows), nil
}

// Totals sums department rows; terminated employees are excluded from Total.
func Totals(rows []HeadcountRow) Headcount {
	out := Headcount{Departments: rows}
	if out.Departments == nil {
		out.Departments = []HeadcountRow{}
	}
	for _, row := range rows {
		out.Active += row.Active
		out.OnLeave += row.OnLeave
		out.Terminated += row.Terminated
	}
	out.Total = out.Active + out.OnLeave
	return out
}

// AttendanceReport summarizes the month for everyone employed during it.
func (s *Service) AttendanceReport(ctx context.Context, month time.Time, departmentID int64) ([]AttendanceRow, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	if start.After(s.today()) {
		return nil, ErrInvalidPeriod
	}
	end := start.AddDate(0, 1, -1)
	people, err := s.Store.People(ctx, departmentID, end)
	if err != nil {
		return nil, err
	}
	out := make([]AttendanceRow, 0, len(people))
	for _, p := range people {
		summary, err := s.Attendance.Summary(ctx, p.EmployeeID, start)
		if err != nil {
			return nil, fmt.Errorf("summary for %s: %w", p.EmployeeCode, err)
		}
		out = append(out, AttendanceRow{
			EmployeeCode: p.EmployeeCode,
			EmployeeName: p.Name,
			Department:   p.Department,
			Summary:      summary,
		})
	}
	return out, nil
}

var attendanceHeader = []string{
	"employee_code", "employee_name", "department", "month",
	"working_days", "present", "late", "half_day", "absent", "on_leave", "wfh", "holidays",
}

func WriteAttendanceCSV(w io.Writer, rows []AttendanceRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(attendanceHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.EmployeeCode,
			row.EmployeeName,
			row.Department,
			row.Month,
			strconv.Itoa(row.WorkingDays),
			strconv.Itoa(row.Present),
			strconv.Itoa(row.Late),
			strconv.Itoa(row.HalfDay),
			strconv.Itoa(row.Absent),
			strconv.Itoa(row.OnLeave),
			strconv.Itoa(row.WFH),
			strconv.Itoa(row.Holidays),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Service) LeaveReport(ctx context.Context, from, to time.Time) (LeaveReport, error) {
	if to.Before(from) {
		return LeaveReport{}, ErrInvalidPeriod
	}
	usage, err := s.Leave.UsageReport(ctx, from, to)
	if err != nil {
		return LeaveReport{}, err
	}
	balances, err := s.Leave.BalanceReport(ctx)
	if err != nil {
		return LeaveReport{}, err
	}
	return LeaveReport{From: from, To: to, Usage: usage, Balances: balances}, nil
}

func (s *Service) JobRuns(ctx context.Context, jobType string, limit int) ([]jobs.Run, error) {
	return s.Jobs.ListRuns(ctx, jobType, limit)
}
