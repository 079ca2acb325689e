package attendance

import (
	"context"
	"fmt"
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

const recordColumns = `
    a.id, a.employee_id, e.first_name || ' ' || e.last_name, a.work_date, a.check_in_at, a.check_out_at,
    a.work_mode, COALESCE(a.location, ''), COALESCE(a.note, ''), a.status, a.worked_hours::float8, a.source,
    a.created_at, a.updated_at`

const recordFrom = `
    FROM attendance a
    JOIN employees e ON e.id = a.employee_id`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.EmployeeName, &rec.WorkDate, &rec.CheckInAt, &rec.CheckOutAt,
		&rec.WorkMode, &rec.Location, &rec.Note, &rec.Status, &rec.WorkedHours, &rec.Source,
		&rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

func (s *Store) GetByDay(ctx context.Context, employeeID int64, day time.Time) (Record, error) {
	rec, err := scanRecord(s.DB.QueryRow(ctx, "SELECT "+recordColumns+recordFrom+" WHERE a.employee_id = $1 AND a.work_date = $2", employeeID, day))
	if db.IsNoRows(err) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// CreateCheckIn inserts the day's record. When a record already exists the
// stored row is returned with created=false.
func (s *Store) CreateCheckIn(ctx context.Context, rec Record) (Record, bool, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO attendance (employee_id, work_date, check_in_at, work_mode, location, note, status, source)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    ON CONFLICT (employee_id, work_date) DO NOTHING
    RETURNING id
  `, rec.EmployeeID, rec.WorkDate, rec.CheckInAt, rec.WorkMode, nullIfEmpty(rec.Location), nullIfEmpty(rec.Note), rec.Status, SourceSelf).Scan(&id)
	created := true
	if db.IsNoRows(err) {
		created = false
	} else if err != nil {
		return Record{}, false, err
	}
	stored, err := s.GetByDay(ctx, rec.EmployeeID, rec.WorkDate)
	return stored, created, err
}

func (s *Store) CheckOut(ctx context.Context, id int64, at time.Time, hours float64, status, note string) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE attendance
    SET check_out_at = $2, worked_hours = $3, status = $4, note = COALESCE($5, note), updated_at = now()
    WHERE id = $1 AND check_out_at IS NULL
  `, id, at, hours, status, nullIfEmpty(note))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyCheckedOut
	}
	return nil
}

// Upsert writes a manual correction over whatever the employee recorded.
func (s *Store) Upsert(ctx context.Context, rec Record) (Record, error) {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO attendance (employee_id, work_date, check_in_at, check_out_at, work_mode, note, status, worked_hours, source)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    ON CONFLICT (employee_id, work_date) DO UPDATE
    SET check_in_at = EXCLUDED.check_in_at,
        check_out_at = EXCLUDED.check_out_at,
        work_mode = EXCLUDED.work_mode,
        note = EXCLUDED.note,
        status = EXCLUDED.status,
        worked_hours = EXCLUDED.worked_hours,
        source = EXCLUDED.source,
        updated_at = now()
  `, rec.EmployeeID, rec.WorkDate, rec.CheckInAt, rec.CheckOutAt, rec.WorkMode, nullIfEmpty(rec.Note), rec.Status, rec.WorkedHours, SourceManual)
	if db.IsForeignKeyViolation(err) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return s.GetByDay(ctx, rec.EmployeeID, rec.WorkDate)
}

func buildFilter(filter Filter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if filter.EmployeeID > 0 {
		args = append(args, filter.EmployeeID)
		where += fmt.Sprintf(" AND a.employee_id = $%d", len(args))
	}
	if filter.TeamOf > 0 {
		args = append(args, filter.TeamOf)
		where += fmt.Sprintf(" AND (e.manager_id = $%[1]d OR e.id = $%[1]d)", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where += fmt.Sprintf(" AND a.work_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where += fmt.Sprintf(" AND a.work_date <= $%d", len(args))
	}
	return where, args
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := buildFilter(filter)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1)"+recordFrom+where, args...).Scan(&total)
	return total, err
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Record, error) {
	where, args := buildFilter(filter)
	query := "SELECT " + recordColumns + recordFrom + where + " ORDER BY a.work_date DESC, e.last_name, e.first_name"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) ApprovedLeaves(ctx context.Context, employeeID int64, from, to time.Time) ([]LeaveSpan, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT start_date, end_date FROM leave_requests
    WHERE employee_id = $1 AND status = 'approved' AND start_date <= $3 AND end_date >= $2
  `, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LeaveSpan
	for rows.Next() {
		var span LeaveSpan
		if err := rows.Scan(&span.Start, &span.End); err != nil {
			return nil, err
		}
		out = append(out, span)
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
