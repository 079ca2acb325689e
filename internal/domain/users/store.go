package users

import (
	"context"
	"fmt"

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

const userColumns = `u.id, u.email, u.role_id, r.name, u.employee_id, u.is_active, u.mfa_enabled, u.last_login_at, u.created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.RoleID, &u.Role, &u.EmployeeID, &u.Active, &u.MFAEnabled, &u.LastLoginAt, &u.CreatedAt)
	return u, err
}

func buildFilter(filter Filter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if filter.Role != "" {
		args = append(args, filter.Role)
		where += fmt.Sprintf(" AND r.name = $%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		where += fmt.Sprintf(" AND u.is_active = $%d", len(args))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		where += fmt.Sprintf(" AND u.email ILIKE $%d", len(args))
	}
	return where, args
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := buildFilter(filter)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM users u JOIN roles r ON r.id = u.role_id"+where, args...).Scan(&total)
	return total, err
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]User, error) {
	where, args := buildFilter(filter)
	query := "SELECT " + userColumns + " FROM users u JOIN roles r ON r.id = u.role_id" + where +
		fmt.Sprintf(" ORDER BY u.email LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, userID int64) (User, error) {
	u, err := scanUser(s.DB.QueryRow(ctx, "SELECT "+userColumns+" FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id = $1", userID))
	if db.IsNoRows(err) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) Create(ctx context.Context, email, passwordHash string, roleID int64, employeeID *int64) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role_id, employee_id)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, email, passwordHash, roleID, employeeID).Scan(&id)
	switch {
	case db.IsUniqueViolation(err):
		return 0, ErrEmailTaken
	case db.IsForeignKeyViolation(err):
		return 0, ErrInvalidEmployee
	}
	return id, err
}

func (s *Store) EmployeeHasLogin(ctx context.Context, employeeID int64) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE employee_id = $1)", employeeID).Scan(&exists)
	return exists, err
}

func (s *Store) RoleByName(ctx context.Context, name string) (Role, error) {
	var role Role
	err := s.DB.QueryRow(ctx, "SELECT id, name, COALESCE(description, '') FROM roles WHERE name = $1", name).Scan(&role.ID, &role.Name, &role.Description)
	if db.IsNoRows(err) {
		return Role{}, ErrUnknownRole
	}
	return role, err
}

func (s *Store) GetRole(ctx context.Context, roleID int64) (Role, error) {
	var role Role
	err := s.DB.QueryRow(ctx, "SELECT id, name, COALESCE(description, '') FROM roles WHERE id = $1", roleID).Scan(&role.ID, &role.Name, &role.Description)
	if db.IsNoRows(err) {
		return Role{}, ErrUnknownRole
	}
	return role, err
}

func (s *Store) SetRole(ctx context.Context, userID, roleID int64) error {
	cmd, err := s.DB.Exec(ctx, "UPDATE users SET role_id = $1, updated_at = now() WHERE id = $2", roleID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	_, err = s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL", userID)
	return err
}

// SetActive toggles a login. Deactivation also revokes open sessions.
func (s *Store) SetActive(ctx context.Context, userID int64, active bool) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, "UPDATE users SET is_active = $1, updated_at = now() WHERE id = $2", active, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	if !active {
		if _, err := tx.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL", userID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.id, r.name, COALESCE(r.description, ''),
           COALESCE(array_agg(p.key ORDER BY p.key) FILTER (WHERE p.key IS NOT NULL), '{}')
    FROM roles r
    LEFT JOIN role_permissions rp ON rp.role_id = r.id
    LEFT JOIN permissions p ON p.id = rp.permission_id
    GROUP BY r.id
    ORDER BY r.name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Permissions); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (s *Store) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.DB.Query(ctx, "SELECT key, COALESCE(description, '') FROM permissions ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.Key, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ReplaceRolePermissions(ctx context.Context, roleID int64, keys []string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM role_permissions WHERE role_id = $1", roleID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
    INSERT INTO role_permissions (role_id, permission_id)
    SELECT $1, id FROM permissions WHERE key = ANY($2)
  `, roleID, keys); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
