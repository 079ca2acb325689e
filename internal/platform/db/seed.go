package db

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrms/internal/domain/auth"
	"hrms/internal/platform/config"
)

type bootstrapAccount struct {
	role     string
	email    string
	password string
	optional bool
}

// Seed installs the permission catalogue, the built-in roles and their
// default grants in one transaction, then creates the bootstrap accounts.
// It only ever adds rows, so grants changed at runtime survive a restart.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	roles, grantRoles, grantPerms, err := defaultGrants(auth.DefaultPermissions, auth.RolePermissions)
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO permissions (key)
			SELECT unnest($1::text[])
			ON CONFLICT (key) DO NOTHING
		`, auth.DefaultPermissions); err != nil {
			return fmt.Errorf("seed permissions: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO roles (name)
			SELECT unnest($1::text[])
			ON CONFLICT (name) DO NOTHING
		`, roles); err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			SELECT r.id, p.id
			FROM unnest($1::text[], $2::text[]) AS g(role_name, perm_key)
			JOIN roles r ON r.name = g.role_name
			JOIN permissions p ON p.key = g.perm_key
			ON CONFLICT DO NOTHING
		`, grantRoles, grantPerms)
		if err != nil {
			return fmt.Errorf("seed role grants: %w", err)
		}
		if n := tag.RowsAffected(); n > 0 {
			slog.Info("seeded role grants", "count", n)
		}
		return nil
	})
	if err != nil {
		return err
	}

	accounts := []bootstrapAccount{
		{role: auth.RoleHR, email: cfg.SeedAdminEmail, password: cfg.SeedAdminPassword},
		{role: auth.RoleSystemAdmin, email: cfg.SeedSystemAdminEmail, password: cfg.SeedSystemAdminPassword, optional: true},
	}
	for _, acct := range accounts {
		if err := ensureAccount(ctx, pool, acct); err != nil {
			if !acct.optional {
				return err
			}
			slog.Warn("bootstrap account skipped", "role", acct.role, "email", acct.email, "err", err)
		}
	}
	return nil
}

// defaultGrants flattens the role table into parallel role/permission
// arrays for a single set-based insert. Roles come back sorted.
func defaultGrants(catalogue []string, table map[string][]string) (roles, grantRoles, grantPerms []string, err error) {
	known := make(map[string]struct{}, len(catalogue))
	for _, key := range catalogue {
		known[key] = struct{}{}
	}

	for role := range table {
		roles = append(roles, role)
	}
	slices.Sort(roles)

	for _, role := range roles {
		for _, perm := range table[role] {
			if _, ok := known[perm]; !ok {
				return nil, nil, nil, fmt.Errorf("role %s grants unknown permission %q", role, perm)
			}
			grantRoles = append(grantRoles, role)
			grantPerms = append(grantPerms, perm)
		}
	}
	return roles, grantRoles, grantPerms, nil
}

func ensureAccount(ctx context.Context, pool *pgxpool.Pool, acct bootstrapAccount) error {
	email := strings.ToLower(strings.TrimSpace(acct.email))
	if email == "" || strings.TrimSpace(acct.password) == "" {
		return nil
	}

	var exists bool
	if err := pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = $1)", email).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := auth.HashPassword(acct.password)
	if err != nil {
		return err
	}

	var id int64
	err = pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role_id)
		SELECT $1, $2, id FROM roles WHERE name = $3
		ON CONFLICT (email) DO NOTHING
		RETURNING id
	`, email, hash, acct.role).Scan(&id)
	if IsNoRows(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed %s account: %w", acct.role, err)
	}
	slog.Info("seeded user", "email", email, "role", acct.role, "user_id", id)
	return nil
}
