package holidays

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"hrms/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func (s *Store) Between(ctx context.Context, from, to time.Time) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, holiday_date, name, optional, created_at
    FROM holidays
    WHERE holiday_date BETWEEN $1 AND $2
    ORDER BY holiday_date, name
  `, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Date, &h.Name, &h.Optional, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, h Holiday) (Holiday, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO holidays (holiday_date, name, optional)
    VALUES ($1, $2, $3)
    RETURNING id, created_at
  `, h.Date, h.Name, h.Optional).Scan(&h.ID, &h.CreatedAt)
	if db.IsUniqueViolation(err) {
		return Holiday{}, ErrDuplicate
	}
	return h, err
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM holidays WHERE id = $1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
