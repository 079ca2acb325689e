package notifications

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists in-app notifications and the singleton email settings row.
type Store struct {
	DB *pgxpool.Pool
}

var _ StoreAPI = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func (s *Store) CreateNotification(ctx context.Context, userID int64, ntype, title, body string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (user_id, type, title, body)
    VALUES ($1,$2,$3,$4)
  `, userID, ntype, title, body)
	return err
}

func (s *Store) UserEmail(ctx context.Context, userID int64) (string, error) {
	var email string
	if err := s.DB.QueryRow(ctx, "SELECT email FROM users WHERE id = $1 AND is_active", userID).Scan(&email); err != nil {
		return "", err
	}
	return email, nil
}

// UserIDForEmployee returns 0 when the employee has no login.
func (s *Store) UserIDForEmployee(ctx context.Context, employeeID int64) (int64, error) {
	var userID int64
	err := s.DB.QueryRow(ctx, "SELECT id FROM users WHERE employee_id = $1 AND is_active ORDER BY id LIMIT 1", employeeID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return userID, err
}

func (s *Store) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, type, title, body, read_at, created_at
    FROM notifications
    WHERE user_id = $1 AND (NOT $2 OR read_at IS NULL)
    ORDER BY created_at DESC, id DESC
    LIMIT $3 OFFSET $4
  `, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountNotifications(ctx context.Context, userID int64, unreadOnly bool) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM notifications
    WHERE user_id = $1 AND (NOT $2 OR read_at IS NULL)
  `, userID, unreadOnly).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, userID, notificationID int64) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = COALESCE(read_at, now())
    WHERE user_id = $1 AND id = $2
  `, userID, notificationID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = now()
    WHERE user_id = $1 AND read_at IS NULL
  `, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) EmailSettings(ctx context.Context) (Settings, error) {
	var settings Settings
	err := s.DB.QueryRow(ctx, `
    SELECT email_enabled, COALESCE(email_from, '')
    FROM notification_settings
    WHERE id = 1
  `).Scan(&settings.EmailEnabled, &settings.EmailFrom)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, nil
	}
	return settings, err
}

func (s *Store) UpdateSettings(ctx context.Context, settings Settings) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notification_settings (id, email_enabled, email_from)
    VALUES (1,$1,$2)
    ON CONFLICT (id) DO UPDATE
      SET email_enabled = EXCLUDED.email_enabled,
          email_from = EXCLUDED.email_from,
          updated_at = now()
  `, settings.EmailEnabled, nullIfEmpty(settings.EmailFrom))
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
