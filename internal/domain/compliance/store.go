package compliance

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

// Statuses lists every active employee who had joined by day, with their
// leave and reporting flags. A zero departmentID covers all departments.
func (s *Store) Statuses(ctx context.Context, day time.Time, departmentID int64) ([]EmployeeStatus, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id, e.first_name || ' ' || e.last_name, e.department_id, COALESCE(d.name, ''),
           EXISTS (
             SELECT 1 FROM leave_requests l
             WHERE l.employee_id = e.id AND l.status = 'approved'
               AND l.start_date <= $1 AND l.end_date >= $1
           ),
           EXISTS (
             SELECT 1 FROM timesheet_entries t
             WHERE t.employee_id = e.id AND t.work_date = $1
               AND t.status IN ('submitted', 'approved', 'locked')
           ) OR EXISTS (
             SELECT 1 FROM work_updates w
             WHERE w.employee_id = e.id AND w.work_date = $1
           )
    FROM employees e
    LEFT JOIN departments d ON d.id = e.department_id
    WHERE e.status IN ('active', 'on_leave')
      AND (e.date_of_joining IS NULL OR e.date_of_joining <= $1)
      AND ($2 = 0 OR e.department_id = $2)
    ORDER BY e.last_name, e.first_name
  `, day, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmployeeStatus
	for rows.Next() {
		var st EmployeeStatus
		if err := rows.Scan(&st.EmployeeID, &st.EmployeeName, &st.DepartmentID, &st.DepartmentName, &st.OnLeave, &st.Compliant); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
