package employees

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	cryptoutil "hrms/internal/platform/crypto"
	"hrms/internal/platform/db"
)

type Store struct {
	DB     *pgxpool.Pool
	Crypto *cryptoutil.Service
}

func NewStore(pool *pgxpool.Pool, crypto *cryptoutil.Service) *Store {
	return &Store{DB: pool, Crypto: crypto}
}

const employeeColumns = `
    e.id, e.employee_code, e.first_name, e.last_name, e.email, COALESCE(e.phone, ''),
    e.department_id, COALESCE(d.name, ''), e.designation_id, COALESCE(g.title, ''),
    e.location_id, e.manager_id, COALESCE(m.first_name || ' ' || m.last_name, ''),
    e.date_of_joining, e.status, e.salary::float8, e.bank_account_enc, e.terminated_at,
    e.created_at, e.updated_at`

const employeeJoins = `
    FROM employees e
    LEFT JOIN departments d ON d.id = e.department_id
    LEFT JOIN designations g ON g.id = e.designation_id
    LEFT JOIN employees m ON m.id = e.manager_id`

func (s *Store) scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	var bankEnc []byte
	err := row.Scan(
		&emp.ID, &emp.EmployeeCode, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Phone,
		&emp.DepartmentID, &emp.DepartmentName, &emp.DesignationID, &emp.DesignationTitle,
		&emp.LocationID, &emp.ManagerID, &emp.ManagerName,
		&emp.DateOfJoining, &emp.Status, &emp.Salary, &bankEnc, &emp.TerminatedAt,
		&emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		return Employee{}, err
	}
	emp.BankAccount = s.openBankAccount(bankEnc)
	return emp, nil
}

// Without a configured key the column holds the plain value.
func (s *Store) openBankAccount(sealed []byte) string {
	if len(sealed) == 0 {
		return ""
	}
	if !s.Crypto.Configured() {
		return string(sealed)
	}
	plain, err := s.Crypto.DecryptString(sealed)
	if err != nil {
		return ""
	}
	return plain
}

func (s *Store) sealBankAccount(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	if !s.Crypto.Configured() {
		return []byte(value), nil
	}
	return s.Crypto.EncryptString(value)
}

func (s *Store) Get(ctx context.Context, employeeID int64) (Employee, error) {
	emp, err := s.scanEmployee(s.DB.QueryRow(ctx, "SELECT "+employeeColumns+employeeJoins+" WHERE e.id = $1", employeeID))
	if db.IsNoRows(err) {
		return Employee{}, ErrNotFound
	}
	return emp, err
}

func buildFilter(filter Filter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if filter.ID > 0 {
		args = append(args, filter.ID)
		where += fmt.Sprintf(" AND e.id = $%d", len(args))
	}
	if filter.DepartmentID > 0 {
		args = append(args, filter.DepartmentID)
		where += fmt.Sprintf(" AND e.department_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND e.status = $%d", len(args))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		where += fmt.Sprintf(" AND (e.first_name ILIKE $%[1]d OR e.last_name ILIKE $%[1]d OR e.email ILIKE $%[1]d OR e.employee_code ILIKE $%[1]d)", len(args))
	}
	if filter.TeamOf > 0 {
		args = append(args, filter.TeamOf)
		where += fmt.Sprintf(" AND (e.manager_id = $%[1]d OR e.id = $%[1]d)", len(args))
	}
	return where, args
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := buildFilter(filter)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees e"+where, args...).Scan(&total)
	return total, err
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Employee, error) {
	where, args := buildFilter(filter)
	query := "SELECT " + employeeColumns + employeeJoins + where +
		fmt.Sprintf(" ORDER BY e.last_name, e.first_name, e.id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := s.scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, emp Employee) (int64, error) {
	bankEnc, err := s.sealBankAccount(emp.BankAccount)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.DB.QueryRow(ctx, `
    INSERT INTO employees (employee_code, first_name, last_name, email, phone, department_id, designation_id,
      location_id, manager_id, date_of_joining, status, salary, bank_account_enc)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    RETURNING id
  `,
		emp.EmployeeCode, emp.FirstName, emp.LastName, emp.Email, nullIfEmpty(emp.Phone), emp.DepartmentID, emp.DesignationID,
		emp.LocationID, emp.ManagerID, emp.DateOfJoining, emp.Status, emp.Salary, bankEnc,
	).Scan(&id)
	return id, translateWriteError(err)
}

func (s *Store) Update(ctx context.Context, employeeID int64, emp Employee) error {
	bankEnc, err := s.sealBankAccount(emp.BankAccount)
	if err != nil {
		return err
	}
	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET first_name = $1,
        last_name = $2,
        email = $3,
        phone = $4,
        department_id = $5,
        designation_id = $6,
        location_id = $7,
        manager_id = $8,
        date_of_joining = $9,
        status = $10,
        salary = $11,
        bank_account_enc = $12,
        updated_at = now()
    WHERE id = $13
  `,
		emp.FirstName, emp.LastName, emp.Email, nullIfEmpty(emp.Phone), emp.DepartmentID, emp.DesignationID,
		emp.LocationID, emp.ManagerID, emp.DateOfJoining, emp.Status, emp.Salary, bankEnc, employeeID,
	)
	if err != nil {
		return translateWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Terminate marks the employee terminated, detaches reports and disables
// any linked logins in one transaction.
func (s *Store) Terminate(ctx context.Context, employeeID int64, on time.Time) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
    UPDATE employees SET status = 'terminated', terminated_at = $2, updated_at = now()
    WHERE id = $1 AND status <> 'terminated'
  `, employeeID, on)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyTerminated
	}
	if _, err := tx.Exec(ctx, "UPDATE employees SET manager_id = NULL, updated_at = now() WHERE manager_id = $1", employeeID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "UPDATE users SET is_active = false, updated_at = now() WHERE employee_id = $1", employeeID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
    UPDATE sessions SET revoked_at = now()
    WHERE revoked_at IS NULL AND user_id IN (SELECT id FROM users WHERE employee_id = $1)
  `, employeeID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) IsManagerOf(ctx context.Context, managerEmployeeID, employeeID int64) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees WHERE id = $1 AND manager_id = $2
  `, employeeID, managerEmployeeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ManagerChain walks up the reporting line from employeeID.
func (s *Store) ManagerChain(ctx context.Context, employeeID int64) ([]int64, error) {
	rows, err := s.DB.Query(ctx, `
    WITH RECURSIVE chain(id, manager_id, depth) AS (
      SELECT id, manager_id, 0 FROM employees WHERE id = $1
      UNION ALL
      SELECT e.id, e.manager_id, c.depth + 1
      FROM employees e JOIN chain c ON e.id = c.manager_id
      WHERE c.depth < 50
    )
    SELECT manager_id FROM chain WHERE manager_id IS NOT NULL ORDER BY depth
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) Exists(ctx context.Context, employeeID int64) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM employees WHERE id = $1)", employeeID).Scan(&exists)
	return exists, err
}

func (s *Store) NextEmployeeCode(ctx context.Context) (string, error) {
	var next int64
	if err := s.DB.QueryRow(ctx, "SELECT COALESCE(MAX(id), 0) + 1 FROM employees").Scan(&next); err != nil {
		return "", err
	}
	return fmt.Sprintf("EMP%05d", next), nil
}

func translateWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err):
		return ErrDuplicate
	case db.IsForeignKeyViolation(err):
		return ErrInvalidReference
	}
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
