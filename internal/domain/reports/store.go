package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"hrms/internal/platform/db"
)

type StoreAPI interface {
	EmployeeDashboard(ctx context.Context, employeeID, userID int64, today time.Time) (EmployeeDashboard, error)
	ManagerDashboard(ctx context.Context, managerID int64, today time.Time) (ManagerDashboard, error)
	HRDashboard(ctx context.Context, today time.Time) (HRDashboard, error)
	Headcount(ctx context.Context) ([]HeadcountRow, error)
	People(ctx context.Context, departmentID int64, asOf time.Time) ([]Person, error)
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

type counter struct {
	ctx  context.Context
	pool *pgxpool.Pool
	err  error
}

// int runs a COUNT-style query; the first error sticks.
func (c *counter) int(query string, args ...any) int {
	if c.err != nil {
		return 0
	}
	var n int
	c.err = c.pool.QueryRow(c.ctx, query, args...).Scan(&n)
	return n
}

func (s *Store) EmployeeDashboard(ctx context.Context, employeeID, userID int64, today time.Time) (EmployeeDashboard, error) {
	out := EmployeeDashboard{EmployeeID: employeeID, TodayStatus: "not_checked_in"}
	var status string
	err := s.DB.QueryRow(ctx, "SELECT status FROM attendance WHERE employee_id = $1 AND work_date = $2", employeeID, today).Scan(&status)
	if err != nil && !db.IsNoRows(err) {
		return out, err
	}
	if status != "" {
		out.TodayStatus = status
	}
	if err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(balance - pending), 0)::float8 FROM leave_balances WHERE employee_id = $1
  `, employeeID).Scan(&out.LeaveAvailable); err != nil {
		return out, err
	}
	c := &counter{ctx: ctx, pool: s.DB}
	out.PendingLeave = c.int("SELECT COUNT(*) FROM leave_requests WHERE employee_id = $1 AND status IN ('pending', 'pending_hr')", employeeID)
	out.AssetsHeld = c.int("SELECT COUNT(*) FROM asset_allocations WHERE employee_id = $1 AND returned_at IS NULL", employeeID)
	out.Payslips = c.int("SELECT COUNT(*) FROM payroll_slips WHERE employee_id = $1 AND published_at IS NOT NULL", employeeID)
	out.OpenTickets = c.int("SELECT COUNT(*) FROM tickets WHERE requester_id = $1 AND status <> 'closed'", userID)
	out.UnreadNotifications = c.int("SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL", userID)
	out.DraftTimesheets = c.int("SELECT COUNT(*) FROM timesheet_entries WHERE employee_id = $1 AND status IN ('draft', 'rejected')", employeeID)
	return out, c.err
}

func (s *Store) ManagerDashboard(ctx context.Context, managerID int64, today time.Time) (ManagerDashboard, error) {
	c := &counter{ctx: ctx, pool: s.DB}
	out := ManagerDashboard{
		TeamSize: c.int("SELECT COUNT(*) FROM employees WHERE manager_id = $1 AND status <> 'terminated'", managerID),
		CheckedInToday: c.int(`
      SELECT COUNT(*) FROM attendance a JOIN employees e ON e.id = a.employee_id
      WHERE e.manager_id = $1 AND a.work_date = $2 AND a.check_in_at IS NOT NULL`, managerID, today),
		OnLeaveToday: c.int(`
      SELECT COUNT(DISTINCT lr.employee_id) FROM leave_requests lr JOIN employees e ON e.id = lr.employee_id
      WHERE e.manager_id = $1 AND lr.status = 'approved' AND $2 BETWEEN lr.start_date AND lr.end_date`, managerID, today),
		PendingLeave: c.int(`
      SELECT COUNT(*) FROM leave_requests lr JOIN employees e ON e.id = lr.employee_id
      WHERE e.manager_id = $1 AND lr.status = 'pending'`, managerID),
		PendingTimesheets: c.int(`
      SELECT COUNT(*) FROM timesheet_entries t JOIN employees e ON e.id = t.employee_id
      WHERE e.manager_id = $1 AND t.status = 'submitted'`, managerID),
		MissingUpdates: c.int(`
      SELECT COUNT(*) FROM employees e
      WHERE e.manager_id = $1 AND e.status = 'active'
        AND NOT EXISTS (SELECT 1 FROM work_updates w WHERE w.employee_id = e.id AND w.work_date = $2)
        AND NOT EXISTS (SELECT 1 FROM timesheet_entries t WHERE t.employee_id = e.id AND t.work_date = $2
                          AND t.status IN ('submitted', 'approved', 'locked'))
        AND NOT EXISTS (SELECT 1 FROM leave_requests lr WHERE lr.employee_id = e.id AND lr.status = 'approved'
                          AND $2 BETWEEN lr.start_date AND lr.end_date)`, managerID, today),
	}
	return out, c.err
}

func (s *Store) HRDashboard(ctx context.Context, today time.Time) (HRDashboard, error) {
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	c := &counter{ctx: ctx, pool: s.DB}
	out := HRDashboard{
		Headcount:        c.int("SELECT COUNT(*) FROM employees WHERE status <> 'terminated'"),
		OnLeave:          c.int("SELECT COUNT(DISTINCT employee_id) FROM leave_requests WHERE status = 'approved' AND $1 BETWEEN start_date AND end_date", today),
		JoinersThisMonth: c.int("SELECT COUNT(*) FROM employees WHERE date_of_joining >= $1", monthStart),
		PendingLeave:     c.int("SELECT COUNT(*) FROM leave_requests WHERE status = 'pending'"),
		PendingHRLeave:   c.int("SELECT COUNT(*) FROM leave_requests WHERE status = 'pending_hr'"),
		UnlockedPayroll:  c.int("SELECT COUNT(*) FROM payroll_runs WHERE status <> 'locked'"),
		OpenTickets:      c.int("SELECT COUNT(*) FROM tickets WHERE status IN ('open', 'in_progress')"),
		AllocatedAssets:  c.int("SELECT COUNT(*) FROM assets WHERE status = 'allocated'"),
		CheckedInToday:   c.int("SELECT COUNT(*) FROM attendance WHERE work_date = $1 AND check_in_at IS NOT NULL", today),
		ActiveAnnouncements: c.int(`
      SELECT COUNT(*) FROM announcements
      WHERE status = 'published' AND (expires_at IS NULL OR expires_at > now())`),
	}
	return out, c.err
}

func (s *Store) Headcount(ctx context.Context) ([]HeadcountRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.department_id, COALESCE(d.name, ''),
           COUNT(*) FILTER (WHERE e.status = 'active'),
           COUNT(*) FILTER (WHERE e.status = 'on_leave'),
           COUNT(*) FILTER (WHERE e.status = 'terminated')
    FROM employees e
    LEFT JOIN departments d ON d.id = e.department_id
    GROUP BY e.department_id, d.name
    ORDER BY d.name NULLS LAST
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HeadcountRow
	for rows.Next() {
		var row HeadcountRow
		if err := rows.Scan(&row.DepartmentID, &row.DepartmentName, &row.Active, &row.OnLeave, &row.Terminated); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// People lists employees employed at asOf, optionally in one department.
func (s *Store) People(ctx context.Context, departmentID int64, asOf time.Time) ([]Person, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id, e.employee_code, e.first_name || ' ' || e.last_name, COALESCE(d.name, '')
    FROM employees e
    LEFT JOIN departments d ON d.id = e.department_id
    WHERE (e.terminated_at IS NULL OR e.terminated_at >= $1)
      AND (e.date_of_joining IS NULL OR e.date_of_joining <= $2)
      AND ($3::bigint = 0 OR e.department_id = $3)
    ORDER BY e.employee_code
  `, time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC), asOf, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.EmployeeID, &p.EmployeeCode, &p.Name, &p.Department); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
