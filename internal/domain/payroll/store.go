package payroll

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrms/internal/platform/db"
)

type StoreAPI interface {
	GetStructure(ctx context.Context, employeeID int64) (Structure, error)
	CountStructures(ctx context.Context) (int, error)
	ListStructures(ctx context.Context, limit, offset int) ([]Structure, error)
	UpsertStructure(ctx context.Context, st Structure) error

	CreateAdjustment(ctx context.Context, adj Adjustment) (int64, error)
	ListAdjustments(ctx context.Context, year, month int) ([]Adjustment, error)

	EnsureRun(ctx context.Context, year, month int) (Run, error)
	GetRun(ctx context.Context, id int64) (Run, error)
	CountRuns(ctx context.Context) (int, error)
	ListRuns(ctx context.Context, limit, offset int) ([]Run, error)
	PayInputs(ctx context.Context, run Run) ([]PayInput, error)
	ReplaceSlips(ctx context.Context, runID int64, workingDays int, slips []Slip) error
	LockRun(ctx context.Context, runID, actorID int64) error

	GetSlip(ctx context.Context, id int64) (Slip, error)
	ListSlips(ctx context.Context, runID int64) ([]Slip, error)
	SlipsForEmployee(ctx context.Context, employeeID int64, publishedOnly bool) ([]Slip, error)
	SetSlipFile(ctx context.Context, slipID int64, path string) error
	PublishSlips(ctx context.Context, runID int64) error
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func (s *Store) GetStructure(ctx context.Context, employeeID int64) (Structure, error) {
	var st Structure
	err := s.DB.QueryRow(ctx, `
    SELECT ss.employee_id, e.first_name || ' ' || e.last_name, ss.base::float8, ss.allowances::float8,
           ss.deductions::float8, ss.currency, ss.updated_at
    FROM salary_structures ss
    JOIN employees e ON e.id = ss.employee_id
    WHERE ss.employee_id = $1
  `, employeeID).Scan(&st.EmployeeID, &st.EmployeeName, &st.Base, &st.Allowances, &st.Deductions, &st.Currency, &st.UpdatedAt)
	if db.IsNoRows(err) {
		return Structure{}, ErrUnknownEmployee
	}
	return st, err
}

func (s *Store) CountStructures(ctx context.Context) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(*) FROM salary_structures").Scan(&total)
	return total, err
}

func (s *Store) ListStructures(ctx context.Context, limit, offset int) ([]Structure, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT ss.employee_id, e.first_name || ' ' || e.last_name, ss.base::float8, ss.allowances::float8,
           ss.deductions::float8, ss.currency, ss.updated_at
    FROM salary_structures ss
    JOIN employees e ON e.id = ss.employee_id
    ORDER BY e.first_name, e.last_name
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Structure
	for rows.Next() {
		var st Structure
		if err := rows.Scan(&st.EmployeeID, &st.EmployeeName, &st.Base, &st.Allowances, &st.Deductions, &st.Currency, &st.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) UpsertStructure(ctx context.Context, st Structure) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO salary_structures (employee_id, base, allowances, deductions, currency)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (employee_id)
    DO UPDATE SET base = EXCLUDED.base, allowances = EXCLUDED.allowances,
                  deductions = EXCLUDED.deductions, currency = EXCLUDED.currency, updated_at = now()
  `, st.EmployeeID, st.Base, st.Allowances, st.Deductions, st.Currency)
	if db.IsForeignKeyViolation(err) {
		return ErrUnknownEmployee
	}
	return err
}

func (s *Store) CreateAdjustment(ctx context.Context, adj Adjustment) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO payroll_adjustments (employee_id, year, month, label, amount, created_by)
    VALUES ($1, $2, $3, $4, $5, $6)
    RETURNING id
  `, adj.EmployeeID, adj.Year, adj.Month, adj.Label, adj.Amount, adj.CreatedBy).Scan(&id)
	if db.IsForeignKeyViolation(err) {
		return 0, ErrUnknownEmployee
	}
	return id, err
}

func (s *Store) ListAdjustments(ctx context.Context, year, month int) ([]Adjustment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, year, month, label, amount::float8, created_by, created_at
    FROM payroll_adjustments
    WHERE year = $1 AND month = $2
    ORDER BY employee_id, id
  `, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Adjustment
	for rows.Next() {
		var a Adjustment
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.Year, &a.Month, &a.Label, &a.Amount, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const runColumns = "id, year, month, status, working_days, generated_at, locked_at, locked_by, created_at"

func scanRun(row pgx.Row) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Year, &r.Month, &r.Status, &r.WorkingDays, &r.GeneratedAt, &r.LockedAt, &r.LockedBy, &r.CreatedAt)
	return r, err
}

func (s *Store) EnsureRun(ctx context.Context, year, month int) (Run, error) {
	if _, err := s.DB.Exec(ctx, `
    INSERT INTO payroll_runs (year, month) VALUES ($1, $2)
    ON CONFLICT (year, month) DO NOTHING
  `, year, month); err != nil {
		return Run{}, err
	}
	return scanRun(s.DB.QueryRow(ctx, "SELECT "+runColumns+" FROM payroll_runs WHERE year = $1 AND month = $2", year, month))
}

func (s *Store) GetRun(ctx context.Context, id int64) (Run, error) {
	r, err := scanRun(s.DB.QueryRow(ctx, "SELECT "+runColumns+" FROM payroll_runs WHERE id = $1", id))
	if db.IsNoRows(err) {
		return Run{}, ErrRunNotFound
	}
	return r, err
}

func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(*) FROM payroll_runs").Scan(&total)
	return total, err
}

func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]Run, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+runColumns+" FROM payroll_runs ORDER BY year DESC, month DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PayInputs loads structures, adjustments, unpaid approved leave and the
// previous net for every active employee.
func (s *Store) PayInputs(ctx context.Context, run Run) ([]PayInput, error) {
	periodStart, periodEnd := run.Period()
	rows, err := s.DB.Query(ctx, `
    SELECT e.id,
           COALESCE(ss.base, e.salary, 0)::float8,
           COALESCE(ss.allowances, 0)::float8,
           COALESCE(ss.deductions, 0)::float8,
           COALESCE(ss.currency, 'INR'),
           e.bank_account_enc IS NOT NULL,
           COALESCE((
             SELECT ps.net::float8 FROM payroll_slips ps
             JOIN payroll_runs pr ON pr.id = ps.run_id
             WHERE ps.employee_id = e.id AND (pr.year, pr.month) < ($1, $2)
             ORDER BY pr.year DESC, pr.month DESC LIMIT 1
           ), 0)
    FROM employees e
    LEFT JOIN salary_structures ss ON ss.employee_id = e.id
    WHERE e.status IN ('active', 'on_leave')
      AND (e.date_of_joining IS NULL OR e.date_of_joining <= $3)
    ORDER BY e.id
  `, run.Year, run.Month, periodEnd)
	if err != nil {
		return nil, err
	}
	var inputs []PayInput
	index := map[int64]int{}
	for rows.Next() {
		var in PayInput
		if err := rows.Scan(&in.EmployeeID, &in.Structure.Base, &in.Structure.Allowances, &in.Structure.Deductions,
			&in.Structure.Currency, &in.HasBank, &in.PreviousNet); err != nil {
			rows.Close()
			return nil, err
		}
		in.Structure.EmployeeID = in.EmployeeID
		index[in.EmployeeID] = len(inputs)
		inputs = append(inputs, in)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	adjRows, err := s.DB.Query(ctx, `
    SELECT employee_id, amount::float8 FROM payroll_adjustments WHERE year = $1 AND month = $2
  `, run.Year, run.Month)
	if err != nil {
		return nil, err
	}
	for adjRows.Next() {
		var employeeID int64
		var amount float64
		if err := adjRows.Scan(&employeeID, &amount); err != nil {
			adjRows.Close()
			return nil, err
		}
		if i, ok := index[employeeID]; ok {
			inputs[i].Adjustments = append(inputs[i].Adjustments, amount)
		}
	}
	adjRows.Close()
	if err := adjRows.Err(); err != nil {
		return nil, err
	}

	leaveRows, err := s.DB.Query(ctx, `
    SELECT lr.employee_id, lr.start_date, lr.end_date, lr.start_half, lr.end_half
    FROM leave_requests lr
    JOIN leave_types lt ON lt.id = lr.leave_type_id
    WHERE lr.status = 'approved' AND lt.is_paid = false
      AND lr.start_date <= $1 AND lr.end_date >= $2
  `, periodEnd, periodStart)
	if err != nil {
		return nil, err
	}
	defer leaveRows.Close()
	for leaveRows.Next() {
		var employeeID int64
		var w LeaveWindow
		if err := leaveRows.Scan(&employeeID, &w.StartDate, &w.EndDate, &w.StartHalf, &w.EndHalf); err != nil {
			return nil, err
		}
		if i, ok := index[employeeID]; ok {
			inputs[i].Unpaid = append(inputs[i].Unpaid, w)
		}
	}
	return inputs, leaveRows.Err()
}

// ReplaceSlips swaps the run's slips in one transaction and marks it
// processed. A locked run is left untouched.
func (s *Store) ReplaceSlips(ctx context.Context, runID int64, workingDays int, slips []Slip) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var status string
	if err := tx.QueryRow(ctx, "SELECT status FROM payroll_runs WHERE id = $1 FOR UPDATE", runID).Scan(&status); err != nil {
		if db.IsNoRows(err) {
			return ErrRunNotFound
		}
		return err
	}
	if status == RunStatusLocked {
		return ErrRunLocked
	}
	if _, err := tx.Exec(ctx, "DELETE FROM payroll_slips WHERE run_id = $1", runID); err != nil {
		return err
	}
	for _, slip := range slips {
		if _, err := tx.Exec(ctx, `
      INSERT INTO payroll_slips (run_id, employee_id, base, allowances, bonus, deductions, lop_days, lop_amount,
                                 gross, total_deductions, net, currency, warnings)
      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `, runID, slip.EmployeeID, slip.Base, slip.Allowances, slip.Bonus, slip.Deductions, slip.LOPDays, slip.LOPAmount,
			slip.Gross, slip.TotalDeductions, slip.Net, slip.Currency, slip.Warnings); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `
    UPDATE payroll_runs SET status = $2, working_days = $3, generated_at = $4 WHERE id = $1
  `, runID, RunStatusProcessed, workingDays, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) LockRun(ctx context.Context, runID, actorID int64) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE payroll_runs SET status = 'locked', locked_at = now(), locked_by = $2
    WHERE id = $1 AND status = 'processed'
  `, runID, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var status string
	err = s.DB.QueryRow(ctx, "SELECT status FROM payroll_runs WHERE id = $1", runID).Scan(&status)
	switch {
	case db.IsNoRows(err):
		return ErrRunNotFound
	case err != nil:
		return err
	case status == RunStatusLocked:
		return ErrRunLocked
	default:
		return ErrInvalidState
	}
}

const slipColumns = `
    ps.id, ps.run_id, pr.year, pr.month, ps.employee_id, e.first_name || ' ' || e.last_name, e.employee_code,
    ps.base::float8, ps.allowances::float8, ps.bonus::float8, ps.deductions::float8, ps.lop_days::float8,
    ps.lop_amount::float8, ps.gross::float8, ps.total_deductions::float8, ps.net::float8, ps.currency,
    ps.warnings, COALESCE(ps.file_path, ''), ps.published_at, ps.created_at`

const slipFrom = `
    FROM payroll_slips ps
    JOIN payroll_runs pr ON pr.id = ps.run_id
    JOIN employees e ON e.id = ps.employee_id`

func scanSlip(row pgx.Row) (Slip, error) {
	var s Slip
	err := row.Scan(&s.ID, &s.RunID, &s.Year, &s.Month, &s.EmployeeID, &s.EmployeeName, &s.EmployeeCode,
		&s.Base, &s.Allowances, &s.Bonus, &s.Deductions, &s.LOPDays, &s.LOPAmount, &s.Gross, &s.TotalDeductions,
		&s.Net, &s.Currency, &s.Warnings, &s.FilePath, &s.PublishedAt, &s.CreatedAt)
	if s.Warnings == nil {
		s.Warnings = []string{}
	}
	return s, err
}

func collectSlips(rows pgx.Rows) ([]Slip, error) {
	defer rows.Close()
	var out []Slip
	for rows.Next() {
		s, err := scanSlip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (s *Store) GetSlip(ctx context.Context, id int64) (Slip, error) {
	slip, err := scanSlip(s.DB.QueryRow(ctx, "SELECT "+slipColumns+slipFrom+" WHERE ps.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Slip{}, ErrSlipNotFound
	}
	return slip, err
}

func (s *Store) ListSlips(ctx context.Context, runID int64) ([]Slip, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+slipColumns+slipFrom+" WHERE ps.run_id = $1 ORDER BY e.employee_code", runID)
	if err != nil {
		return nil, err
	}
	return collectSlips(rows)
}

func (s *Store) SlipsForEmployee(ctx context.Context, employeeID int64, publishedOnly bool) ([]Slip, error) {
	query := "SELECT " + slipColumns + slipFrom + " WHERE ps.employee_id = $1"
	if publishedOnly {
		query += " AND ps.published_at IS NOT NULL"
	}
	rows, err := s.DB.Query(ctx, query+" ORDER BY pr.year DESC, pr.month DESC", employeeID)
	if err != nil {
		return nil, err
	}
	return collectSlips(rows)
}

func (s *Store) SetSlipFile(ctx context.Context, slipID int64, path string) error {
	_, err := s.DB.Exec(ctx, "UPDATE payroll_slips SET file_path = $2 WHERE id = $1", slipID, path)
	return err
}

func (s *Store) PublishSlips(ctx context.Context, runID int64) error {
	_, err := s.DB.Exec(ctx, "UPDATE payroll_slips SET published_at = now() WHERE run_id = $1 AND published_at IS NULL", runID)
	return err
}
