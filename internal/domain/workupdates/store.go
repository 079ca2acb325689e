package workupdates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrms/internal/platform/db"
)

type StoreAPI interface {
	GetByDay(ctx context.Context, employeeID int64, day time.Time) (Update, error)
	Create(ctx context.Context, u Update) (int64, error)
	Update(ctx context.Context, u Update) error
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Update, error)
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const updateColumns = `
    w.id, w.employee_id, e.first_name || ' ' || e.last_name, w.work_date, w.summary,
    COALESCE(w.blockers, ''), COALESCE(w.planned_tomorrow, ''), w.created_at, w.updated_at`

const updateFrom = `
    FROM work_updates w
    JOIN employees e ON e.id = w.employee_id`

func scanUpdate(row pgx.Row) (Update, error) {
	var u Update
	err := row.Scan(&u.ID, &u.EmployeeID, &u.EmployeeName, &u.WorkDate, &u.Summary,
		&u.Blockers, &u.PlannedTomorrow, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func (s *Store) GetByDay(ctx context.Context, employeeID int64, day time.Time) (Update, error) {
	u, err := scanUpdate(s.DB.QueryRow(ctx, "SELECT "+updateColumns+updateFrom+" WHERE w.employee_id = $1 AND w.work_date = $2", employeeID, day))
	if db.IsNoRows(err) {
		return Update{}, ErrNotFound
	}
	return u, err
}

func (s *Store) Create(ctx context.Context, u Update) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO work_updates (employee_id, work_date, summary, blockers, planned_tomorrow)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING id
  `, u.EmployeeID, u.WorkDate, u.Summary, nullIfEmpty(u.Blockers), nullIfEmpty(u.PlannedTomorrow)).Scan(&id)
	return id, err
}

func (s *Store) Update(ctx context.Context, u Update) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE work_updates
    SET summary = $2, blockers = $3, planned_tomorrow = $4, updated_at = now()
    WHERE id = $1
  `, u.ID, u.Summary, nullIfEmpty(u.Blockers), nullIfEmpty(u.PlannedTomorrow))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func updateWhere(filter Filter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.EmployeeID > 0 {
		add("w.employee_id = $%d", filter.EmployeeID)
	}
	if filter.TeamOf > 0 {
		add("e.manager_id = $%d", filter.TeamOf)
	}
	if !filter.From.IsZero() {
		add("w.work_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("w.work_date <= $%d", filter.To)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := updateWhere(filter)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(*)"+updateFrom+where, args...).Scan(&total)
	return total, err
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Update, error) {
	where, args := updateWhere(filter)
	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, "SELECT "+updateColumns+updateFrom+where+
		fmt.Sprintf(" ORDER BY w.work_date DESC, e.last_name LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Update
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
