package leave

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrms/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func collect[T any](rows pgx.Rows, scan func(pgx.Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

const typeColumns = `id, code, name, is_paid, requires_doc, annual_entitlement::float8, created_at`

func scanType(row pgx.Row) (LeaveType, error) {
	var lt LeaveType
	err := row.Scan(&lt.ID, &lt.Code, &lt.Name, &lt.IsPaid, &lt.RequiresDoc, &lt.AnnualEntitlement, &lt.CreatedAt)
	return lt, err
}

func (s *Store) ListTypes(ctx context.Context) ([]LeaveType, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+typeColumns+" FROM leave_types ORDER BY code")
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r pgx.Rows) (LeaveType, error) { return scanType(r) })
}

func (s *Store) GetType(ctx context.Context, typeID int64) (LeaveType, error) {
	lt, err := scanType(s.DB.QueryRow(ctx, "SELECT "+typeColumns+" FROM leave_types WHERE id = $1", typeID))
	if db.IsNoRows(err) {
		return LeaveType{}, ErrTypeNotFound
	}
	return lt, err
}

func (s *Store) CreateType(ctx context.Context, lt LeaveType) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_types (code, name, is_paid, requires_doc, annual_entitlement)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING id
  `, lt.Code, lt.Name, lt.IsPaid, lt.RequiresDoc, lt.AnnualEntitlement).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateType
	}
	return id, err
}

const policyColumns = `
    p.id, p.leave_type_id, t.code, p.accrual_rate::float8, p.accrual_period, p.carry_over_limit::float8,
    p.allow_negative, p.requires_hr_approval, p.last_accrued_on`

func scanPolicy(row pgx.Row) (Policy, error) {
	var p Policy
	err := row.Scan(&p.ID, &p.LeaveTypeID, &p.LeaveTypeCode, &p.AccrualRate, &p.AccrualPeriod, &p.CarryOverLimit,
		&p.AllowNegative, &p.RequiresHRApproval, &p.LastAccruedOn)
	return p, err
}

func (s *Store) ListPolicies(ctx context.Context) ([]Policy, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+policyColumns+" FROM leave_policies p JOIN leave_types t ON t.id = p.leave_type_id ORDER BY t.code")
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r pgx.Rows) (Policy, error) { return scanPolicy(r) })
}

// PolicyForType returns the type's policy, or a zero policy when none exists.
func (s *Store) PolicyForType(ctx context.Context, typeID int64) (Policy, error) {
	p, err := scanPolicy(s.DB.QueryRow(ctx, "SELECT "+policyColumns+" FROM leave_policies p JOIN leave_types t ON t.id = p.leave_type_id WHERE p.leave_type_id = $1", typeID))
	if db.IsNoRows(err) {
		return Policy{LeaveTypeID: typeID, AccrualPeriod: PeriodMonthly}, nil
	}
	return p, err
}

func (s *Store) UpsertPolicy(ctx context.Context, p Policy) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_policies (leave_type_id, accrual_rate, accrual_period, carry_over_limit, allow_negative, requires_hr_approval)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (leave_type_id) DO UPDATE
    SET accrual_rate = EXCLUDED.accrual_rate,
        accrual_period = EXCLUDED.accrual_period,
        carry_over_limit = EXCLUDED.carry_over_limit,
        allow_negative = EXCLUDED.allow_negative,
        requires_hr_approval = EXCLUDED.requires_hr_approval
  `, p.LeaveTypeID, p.AccrualRate, p.AccrualPeriod, p.CarryOverLimit, p.AllowNegative, p.RequiresHRApproval)
	if db.IsForeignKeyViolation(err) {
		return ErrTypeNotFound
	}
	return err
}

const balanceColumns = `
    b.employee_id, b.leave_type_id, t.code, t.name, b.balance::float8, b.pending::float8, b.used::float8, b.updated_at`

func scanBalance(row pgx.Row) (Balance, error) {
	var b Balance
	err := row.Scan(&b.EmployeeID, &b.LeaveTypeID, &b.LeaveTypeCode, &b.LeaveTypeName, &b.Balance, &b.Pending, &b.Used, &b.UpdatedAt)
	return b, err
}

func (s *Store) ListBalances(ctx context.Context, employeeID int64) ([]Balance, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+balanceColumns+`
    FROM leave_balances b
    JOIN leave_types t ON t.id = b.leave_type_id
    WHERE b.employee_id = $1
    ORDER BY t.code`, employeeID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r pgx.Rows) (Balance, error) { return scanBalance(r) })
}

// GetBalance returns the stored balance or a zero balance for the pair.
func (s *Store) GetBalance(ctx context.Context, employeeID, typeID int64) (Balance, error) {
	b, err := scanBalance(s.DB.QueryRow(ctx, "SELECT "+balanceColumns+`
    FROM leave_balances b
    JOIN leave_types t ON t.id = b.leave_type_id
    WHERE b.employee_id = $1 AND b.leave_type_id = $2`, employeeID, typeID))
	if db.IsNoRows(err) {
		return Balance{EmployeeID: employeeID, LeaveTypeID: typeID}, nil
	}
	return b, err
}

func (s *Store) AdjustBalance(ctx context.Context, employeeID, typeID int64, delta float64) (Balance, error) {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, leave_type_id, balance)
    VALUES ($1, $2, $3)
    ON CONFLICT (employee_id, leave_type_id) DO UPDATE
    SET balance = leave_balances.balance + EXCLUDED.balance, updated_at = now()
  `, employeeID, typeID, delta)
	if db.IsForeignKeyViolation(err) {
		return Balance{}, ErrTypeNotFound
	}
	if err != nil {
		return Balance{}, err
	}
	return s.GetBalance(ctx, employeeID, typeID)
}

func (s *Store) ManagerOf(ctx context.Context, employeeID int64) (int64, error) {
	var managerID *int64
	err := s.DB.QueryRow(ctx, "SELECT manager_id FROM employees WHERE id = $1", employeeID).Scan(&managerID)
	if db.IsNoRows(err) {
		return 0, nil
	}
	if err != nil || managerID == nil {
		return 0, err
	}
	return *managerID, nil
}

func (s *Store) HRUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT u.id
    FROM users u
    JOIN roles r ON r.id = u.role_id
    WHERE r.name = 'hr' AND u.is_active
  `)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r pgx.Rows) (int64, error) {
		var id int64
		err := r.Scan(&id)
		return id, err
	})
}

func (s *Store) BalanceReport(ctx context.Context) ([]BalanceReportRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id, e.first_name || ' ' || e.last_name, t.code,
           b.balance::float8, b.pending::float8, b.used::float8
    FROM leave_balances b
    JOIN employees e ON e.id = b.employee_id
    JOIN leave_types t ON t.id = b.leave_type_id
    WHERE e.status <> 'terminated'
    ORDER BY e.last_name, e.first_name, t.code
  `)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r pgx.Rows) (BalanceReportRow, error) {
		var row BalanceReportRow
		err := r.Scan(&row.EmployeeID, &row.EmployeeName, &row.LeaveTypeCode, &row.Balance, &row.Pending, &row.Used)
		return row, err
	})
}

func (s *Store) UsageReport(ctx context.Context, from, to time.Time) ([]UsageReportRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT t.code, t.name, COUNT(r.id), COALESCE(SUM(r.days), 0)::float8
    FROM leave_types t
    LEFT JOIN leave_requests r
      ON r.leave_type_id = t.id AND r.status = 'approved'
     AND r.start_date <= $2 AND r.end_date >= $1
    GROUP BY t.id
    ORDER BY t.code
  `, from, to)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r pgx.Rows) (UsageReportRow, error) {
		var row UsageReportRow
		err := r.Scan(&row.LeaveTypeCode, &row.LeaveTypeName, &row.Requests, &row.Days)
		return row, err
	})
}
