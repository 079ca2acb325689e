package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"hrms/internal/platform/db"
)

const requestColumns = `
    r.id, r.employee_id, e.first_name || ' ' || e.last_name, r.leave_type_id, t.code,
    r.start_date, r.end_date, r.start_half, r.end_half, r.days::float8, COALESCE(r.reason, ''),
    r.status, r.decided_by, r.decided_at, COALESCE(r.decision_note, ''), r.created_at`

const requestFrom = `
    FROM leave_requests r
    JOIN employees e ON e.id = r.employee_id
    JOIN leave_types t ON t.id = r.leave_type_id`

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.EmployeeID, &req.EmployeeName, &req.LeaveTypeID, &req.LeaveTypeCode,
		&req.StartDate, &req.EndDate, &req.StartHalf, &req.EndHalf, &req.Days, &req.Reason,
		&req.Status, &req.DecidedBy, &req.DecidedAt, &req.DecisionNote, &req.CreatedAt)
	return req, err
}

func requestWhere(filter RequestFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.EmployeeID > 0 {
		add("r.employee_id = $%d", filter.EmployeeID)
	}
	if filter.TeamOf > 0 {
		args = append(args, filter.TeamOf)
		clauses = append(clauses, fmt.Sprintf("(e.manager_id = $%d OR e.id = $%d)", len(args), len(args)))
	}
	if filter.Status != "" {
		add("r.status = $%d", filter.Status)
	}
	if !filter.From.IsZero() {
		add("r.end_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("r.start_date <= $%d", filter.To)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) GetRequest(ctx context.Context, id int64) (Request, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, "SELECT "+requestColumns+requestFrom+" WHERE r.id = $1", id))
	if db.IsNoRows(err) {
		return Request{}, ErrNotFound
	}
	return req, err
}

func (s *Store) CountRequests(ctx context.Context, filter RequestFilter) (int, error) {
	where, args := requestWhere(filter)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(*)"+requestFrom+where, args...).Scan(&total)
	return total, err
}

// ListRequests returns requests newest first. A zero limit returns all rows.
func (s *Store) ListRequests(ctx context.Context, filter RequestFilter, limit, offset int) ([]Request, error) {
	where, args := requestWhere(filter)
	query := "SELECT " + requestColumns + requestFrom + where + " ORDER BY r.start_date DESC, r.id DESC"
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r pgx.Rows) (Request, error) { return scanRequest(r) })
}

const overlapQuery = `
    SELECT EXISTS (
      SELECT 1 FROM leave_requests
      WHERE employee_id = $1
        AND status IN ('pending', 'pending_hr', 'approved')
        AND start_date <= $3 AND end_date >= $2
    )`

func (s *Store) HasOverlap(ctx context.Context, employeeID int64, start, end time.Time) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, overlapQuery, employeeID, start, end).Scan(&exists)
	return exists, err
}

// CreateRequest serialises applications per employee with a transaction
// advisory lock, then re-checks overlap and, when enforceBalance is set, the
// available balance under a row lock before reserving the days as pending.
func (s *Store) CreateRequest(ctx context.Context, req Request, enforceBalance bool) (int64, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext('leave_requests'), ($1::bigint % 2147483647)::int)", req.EmployeeID); err != nil {
		return 0, err
	}

	var overlap bool
	if err := tx.QueryRow(ctx, overlapQuery, req.EmployeeID, req.StartDate, req.EndDate).Scan(&overlap); err != nil {
		return 0, err
	}
	if overlap {
		return 0, ErrOverlap
	}

	if _, err := tx.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, leave_type_id)
    VALUES ($1, $2)
    ON CONFLICT (employee_id, leave_type_id) DO NOTHING
  `, req.EmployeeID, req.LeaveTypeID); err != nil {
		if db.IsForeignKeyViolation(err) {
			return 0, ErrTypeNotFound
		}
		return 0, err
	}
	var available float64
	if err := tx.QueryRow(ctx, `
    SELECT (balance - pending)::float8 FROM leave_balances
    WHERE employee_id = $1 AND leave_type_id = $2
    FOR UPDATE
  `, req.EmployeeID, req.LeaveTypeID).Scan(&available); err != nil {
		return 0, err
	}
	if enforceBalance && req.Days > available {
		return 0, ErrInsufficientBalance
	}

	var id int64
	if err := tx.QueryRow(ctx, `
    INSERT INTO leave_requests (employee_id, leave_type_id, start_date, end_date, start_half, end_half, days, reason, status)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    RETURNING id
  `, req.EmployeeID, req.LeaveTypeID, req.StartDate, req.EndDate, req.StartHalf, req.EndHalf, req.Days,
		nullIfEmpty(req.Reason), req.Status).Scan(&id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return 0, ErrTypeNotFound
		}
		return 0, err
	}
	if _, err := tx.Exec(ctx, `
    UPDATE leave_balances SET pending = pending + $3, updated_at = now()
    WHERE employee_id = $1 AND leave_type_id = $2
  `, req.EmployeeID, req.LeaveTypeID, req.Days); err != nil {
		return 0, err
	}
	return id, tx.Commit(ctx)
}

func (s *Store) Transition(ctx context.Context, id int64, from []string, to string, decidedBy int64, note string, move Move) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var employeeID, typeID int64
	var days float64
	err = tx.QueryRow(ctx, `
    UPDATE leave_requests
    SET status = $3, decided_by = $4, decided_at = now(), decision_note = $5, updated_at = now()
    WHERE id = $1 AND status = ANY($2)
    RETURNING employee_id, leave_type_id, days::float8
  `, id, from, to, decidedBy, nullIfEmpty(note)).Scan(&employeeID, &typeID, &days)
	if db.IsNoRows(err) {
		return ErrInvalidState
	}
	if err != nil {
		return err
	}

	switch move {
	case MoveConsume:
		_, err = tx.Exec(ctx, `
      UPDATE leave_balances
      SET pending = GREATEST(pending - $3, 0), balance = balance - $3, used = used + $3, updated_at = now()
      WHERE employee_id = $1 AND leave_type_id = $2
    `, employeeID, typeID, days)
	case MoveRelease:
		_, err = tx.Exec(ctx, `
      UPDATE leave_balances
      SET pending = GREATEST(pending - $3, 0), updated_at = now()
      WHERE employee_id = $1 AND leave_type_id = $2
    `, employeeID, typeID, days)
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
