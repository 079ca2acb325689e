package announcements

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
	Get(ctx context.Context, id int64) (Announcement, error)
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Announcement, error)
	Create(ctx context.Context, a Announcement) (int64, error)
	Update(ctx context.Context, a Announcement) error
	SetStatus(ctx context.Context, id int64, from []string, to string) error
	Delete(ctx context.Context, id int64) error
	ArchiveExpired(ctx context.Context, now time.Time) (int64, error)
	// DueNotifications lists live announcements whose audience has not been
	// notified yet.
	DueNotifications(ctx context.Context, now time.Time) ([]Announcement, error)
	// MarkNotified claims the notification for a published announcement and
	// reports false when it was already claimed.
	MarkNotified(ctx context.Context, id int64) (bool, error)
	DepartmentOf(ctx context.Context, employeeID int64) (*int64, error)
	AudienceUserIDs(ctx context.Context, departmentID *int64) ([]int64, error)
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const announcementColumns = `id, title, body, audience, department_id, pinned, publish_at, expires_at,
    status, notified_at, created_by, created_at, updated_at`

func scanAnnouncement(row pgx.Row) (Announcement, error) {
	var a Announcement
	err := row.Scan(&a.ID, &a.Title, &a.Body, &a.Audience, &a.DepartmentID, &a.Pinned, &a.PublishAt,
		&a.ExpiresAt, &a.Status, &a.NotifiedAt, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func announcementWhere(filter Filter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, strings.ReplaceAll(clause, "$?", fmt.Sprintf("$%d", len(args))))
	}
	if filter.VisibleTo {
		add("status = $?", StatusPublished)
		add("(publish_at IS NULL OR publish_at <= $?)", filter.Now)
		add("(expires_at IS NULL OR expires_at > $?)", filter.Now)
		if filter.DepartmentID != nil {
			add("(audience = 'all' OR department_id = $?)", *filter.DepartmentID)
		} else {
			clauses = append(clauses, "audience = 'all'")
		}
	} else if filter.Status != "" {
		add("status = $?", filter.Status)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) Get(ctx context.Context, id int64) (Announcement, error) {
	a, err := scanAnnouncement(s.DB.QueryRow(ctx, "SELECT "+announcementColumns+" FROM announcements WHERE id = $1", id))
	if db.IsNoRows(err) {
		return Announcement{}, ErrNotFound
	}
	return a, err
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := announcementWhere(filter)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(*) FROM announcements"+where, args...).Scan(&total)
	return total, err
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Announcement, error) {
	where, args := announcementWhere(filter)
	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, "SELECT "+announcementColumns+" FROM announcements"+where+
		fmt.Sprintf(" ORDER BY pinned DESC, COALESCE(publish_at, created_at) DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, a Announcement) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO announcements (title, body, audience, department_id, pinned, publish_at, expires_at, status, created_by)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    RETURNING id
  `, a.Title, a.Body, a.Audience, a.DepartmentID, a.Pinned, a.PublishAt, a.ExpiresAt, a.Status, a.CreatedBy).Scan(&id)
	if db.IsForeignKeyViolation(err) {
		return 0, ErrUnknownDepartment
	}
	return id, err
}

func (s *Store) Update(ctx context.Context, a Announcement) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE announcements
    SET title = $2, body = $3, audience = $4, department_id = $5, pinned = $6,
        publish_at = $7, expires_at = $8, updated_at = now()
    WHERE id = $1 AND status <> 'archived'
  `, a.ID, a.Title, a.Body, a.Audience, a.DepartmentID, a.Pinned, a.PublishAt, a.ExpiresAt)
	if db.IsForeignKeyViolation(err) {
		return ErrUnknownDepartment
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrArchived
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, id int64, from []string, to string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE announcements SET status = $3, updated_at = now()
    WHERE id = $1 AND status = ANY($2)
  `, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM announcements WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ArchiveExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE announcements SET status = 'archived', updated_at = now()
    WHERE status = 'published' AND expires_at IS NOT NULL AND expires_at <= $1
  `, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DueNotifications(ctx context.Context, now time.Time) ([]Announcement, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+announcementColumns+` FROM announcements
    WHERE status = 'published' AND notified_at IS NULL
      AND (publish_at IS NULL OR publish_at <= $1)
      AND (expires_at IS NULL OR expires_at > $1)
    ORDER BY id`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) MarkNotified(ctx context.Context, id int64) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE announcements SET notified_at = now()
    WHERE id = $1 AND status = 'published' AND notified_at IS NULL
  `, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DepartmentOf(ctx context.Context, employeeID int64) (*int64, error) {
	var departmentID *int64
	err := s.DB.QueryRow(ctx, "SELECT department_id FROM employees WHERE id = $1", employeeID).Scan(&departmentID)
	if db.IsNoRows(err) {
		return nil, nil
	}
	return departmentID, err
}

// AudienceUserIDs lists active logins to notify. A nil department means
// everyone.
func (s *Store) AudienceUserIDs(ctx context.Context, departmentID *int64) ([]int64, error) {
	query := `
    SELECT u.id FROM users u
    LEFT JOIN employees e ON e.id = u.employee_id
    WHERE u.is_active`
	args := []any{}
	if departmentID != nil {
		query += " AND e.department_id = $1"
		args = append(args, *departmentID)
	}
	rows, err := s.DB.Query(ctx, query+" ORDER BY u.id", args...)
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
