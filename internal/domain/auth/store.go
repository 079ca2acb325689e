package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

type AuthUser struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	RoleID      int64  `json:"roleId"`
	RoleName    string `json:"role"`
	EmployeeID  int64  `json:"employeeId,omitempty"`
	Active      bool   `json:"active"`
	MFAEnabled  bool   `json:"mfaEnabled"`
	Password    string `json:"-"`
	MFASecretEn []byte `json:"-"`
}

const userColumns = `
  u.id, u.email, u.role_id, r.name, COALESCE(u.employee_id, 0), u.is_active,
  u.mfa_enabled, u.password_hash, u.mfa_secret_enc`

func scanUser(row pgx.Row) (AuthUser, error) {
	var out AuthUser
	err := row.Scan(&out.ID, &out.Email, &out.RoleID, &out.RoleName, &out.EmployeeID, &out.Active,
		&out.MFAEnabled, &out.Password, &out.MFASecretEn)
	return out, err
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	return scanUser(s.DB.QueryRow(ctx, `SELECT`+userColumns+`
    FROM users u
    JOIN roles r ON u.role_id = r.id
    WHERE lower(u.email) = lower($1)
  `, email))
}

func (s *Store) GetUser(ctx context.Context, userID int64) (AuthUser, error) {
	return scanUser(s.DB.QueryRow(ctx, `SELECT`+userColumns+`
    FROM users u
    JOIN roles r ON u.role_id = r.id
    WHERE u.id = $1
  `, userID))
}

func (s *Store) CreateSession(ctx context.Context, userID int64, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (user_id, token_hash, expires_at)
    VALUES ($1,$2,$3)
  `, userID, tokenHash, expires)
	return err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID int64) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login_at = now() WHERE id = $1", userID)
	return err
}

func (s *Store) RevokeSession(ctx context.Context, userID int64, tokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND token_hash = $2", userID, tokenHash)
	return err
}

func (s *Store) SessionValid(ctx context.Context, userID int64, tokenHash string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM sessions s
    JOIN users u ON u.id = s.user_id
    WHERE s.user_id = $1 AND s.token_hash = $2 AND s.expires_at > now()
      AND s.revoked_at IS NULL AND u.is_active
  `, userID, tokenHash).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RotateSession(ctx context.Context, userID int64, oldHash, newHash string, expires time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE sessions
    SET token_hash = $1, expires_at = $2, rotated_at = now()
    WHERE user_id = $3 AND token_hash = $4 AND revoked_at IS NULL AND expires_at > now()
  `, newHash, expires, userID, oldHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) RevokeAllSessions(ctx context.Context, userID int64) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL", userID)
	return err
}

func (s *Store) UpdateMFASecret(ctx context.Context, userID int64, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE users SET mfa_secret_enc = $1, mfa_enabled = false, updated_at = now() WHERE id = $2
  `, secretEnc, userID)
	return err
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID int64, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = $1, updated_at = now() WHERE id = $2", enabled, userID)
	return err
}

func (s *Store) CreatePasswordReset(ctx context.Context, userID int64, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, "INSERT INTO password_resets (user_id, token_hash, expires_at) VALUES ($1, $2, $3)", userID, tokenHash, expires)
	return err
}

// ConsumePasswordReset marks the token used and stores the new hash in one
// transaction. It returns pgx.ErrNoRows when the token is unknown, used or
// expired.
func (s *Store) ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string) (int64, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var userID int64
	if err := tx.QueryRow(ctx, `
    UPDATE password_resets SET used_at = now()
    WHERE token_hash = $1 AND expires_at > now() AND used_at IS NULL
    RETURNING user_id
  `, tokenHash).Scan(&userID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, "UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2", passwordHash, userID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL", userID); err != nil {
		return 0, err
	}
	return userID, tx.Commit(ctx)
}

func (s *Store) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2", passwordHash, userID)
	return err
}

func (s *Store) HasPermission(ctx context.Context, roleID int64, permission string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM role_permissions rp
      JOIN permissions p ON p.id = rp.permission_id
      WHERE rp.role_id = $1 AND p.key = $2
    )
  `, roleID, permission).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
