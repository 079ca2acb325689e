package timesheets

import (
	"context"
	"fmt"
	"strings"
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

const entryColumns = `
    t.id, t.employee_id, e.first_name || ' ' || e.last_name, t.work_date, t.project_id, COALESCE(p.name, ''),
    t.hours::float8, t.description, t.status, t.submitted_at, t.reviewed_by, t.reviewed_at,
    COALESCE(t.review_note, ''), t.created_at, t.updated_at`

const entryFrom = `
    FROM timesheet_entries t
    JOIN employees e ON e.id = t.employee_id
    LEFT JOIN projects p ON p.id = t.project_id`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.EmployeeID, &e.EmployeeName, &e.WorkDate, &e.ProjectID, &e.ProjectName,
		&e.Hours, &e.Description, &e.Status, &e.SubmittedAt, &e.ReviewedBy, &e.ReviewedAt,
		&e.ReviewNote, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func entryWhere(filter Filter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.EmployeeID > 0 {
		add("t.employee_id = $%d", filter.EmployeeID)
	}
	if filter.TeamOf > 0 {
		add("e.manager_id = $%d", filter.TeamOf)
	}
	if filter.Status != "" {
		add("t.status = $%d", filter.Status)
	}
	if !filter.From.IsZero() {
		add("t.work_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("t.work_date <= $%d", filter.To)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	entry, err := scanEntry(s.DB.QueryRow(ctx, "SELECT "+entryColumns+entryFrom+" WHERE t.id = $1", id))
	if db.IsNoRows(err) {
		return Entry{}, ErrNotFound
	}
	return entry, err
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := entryWhere(filter)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(*)"+entryFrom+where, args...).Scan(&total)
	return total, err
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Entry, error) {
	where, args := entryWhere(filter)
	query := "SELECT " + entryColumns + entryFrom + where + " ORDER BY t.work_date DESC, t.id"
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, entry Entry) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO timesheet_entries (employee_id, work_date, project_id, hours, description, status)
    VALUES ($1, $2, $3, $4, $5, $6)
    RETURNING id
  `, entry.EmployeeID, entry.WorkDate, entry.ProjectID, entry.Hours, entry.Description, entry.Status).Scan(&id)
	if db.IsForeignKeyViolation(err) {
		return 0, ErrInvalidProject
	}
	return id, err
}

func (s *Store) Update(ctx context.Context, entry Entry) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE timesheet_entries
    SET work_date = $2, project_id = $3, hours = $4, description = $5, status = $6, updated_at = now()
    WHERE id = $1 AND status IN ('draft', 'rejected')
  `, entry.ID, entry.WorkDate, entry.ProjectID, entry.Hours, entry.Description, entry.Status)
	if db.IsForeignKeyViolation(err) {
		return ErrInvalidProject
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotEditable
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM timesheet_entries WHERE id = $1 AND status IN ('draft', 'rejected')", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotEditable
	}
	return nil
}

func (s *Store) DailyHours(ctx context.Context, employeeID int64, day time.Time, excludeID int64) (float64, error) {
	var total float64
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(hours), 0)::float8
    FROM timesheet_entries
    WHERE employee_id = $1 AND work_date = $2 AND id <> $3
  `, employeeID, day, excludeID).Scan(&total)
	return total, err
}

func (s *Store) HasLocked(ctx context.Context, employeeID int64, from, to time.Time) (bool, error) {
	var locked bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM timesheet_entries
      WHERE employee_id = $1 AND work_date BETWEEN $2 AND $3 AND status = 'locked'
    )
  `, employeeID, from, to).Scan(&locked)
	return locked, err
}

func (s *Store) SubmitRange(ctx context.Context, employeeID int64, from, to time.Time) (int64, error) {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE timesheet_entries
    SET status = 'submitted', submitted_at = now(), updated_at = now()
    WHERE employee_id = $1 AND work_date BETWEEN $2 AND $3 AND status IN ('draft', 'rejected')
  `, employeeID, from, to)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (s *Store) Review(ctx context.Context, id int64, status string, reviewerID int64, note string) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE timesheet_entries
    SET status = $2, reviewed_by = $3, reviewed_at = now(), review_note = NULLIF($4, ''), updated_at = now()
    WHERE id = $1 AND status = 'submitted'
  `, id, status, reviewerID, note)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// LockRange locks approved entries in the range. A zero employeeID locks
// every employee's entries.
func (s *Store) LockRange(ctx context.Context, from, to time.Time, employeeID int64) (int64, error) {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE timesheet_entries
    SET status = 'locked', updated_at = now()
    WHERE work_date BETWEEN $1 AND $2 AND status = 'approved' AND ($3 = 0 OR employee_id = $3)
  `, from, to, employeeID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
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
