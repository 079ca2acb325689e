package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ColumnPatch is a column that older databases may be missing.
type ColumnPatch struct {
	Table      string
	Column     string
	Definition string
}

// ColumnPatches lists columns added after the initial schema shipped.
var ColumnPatches = []ColumnPatch{
	{Table: "users", Column: "mfa_enabled", Definition: "BOOLEAN NOT NULL DEFAULT false"},
	{Table: "users", Column: "mfa_secret_enc", Definition: "BYTEA"},
	{Table: "users", Column: "last_login_at", Definition: "TIMESTAMPTZ"},
	{Table: "employees", Column: "bank_account_enc", Definition: "BYTEA"},
	{Table: "employees", Column: "terminated_at", Definition: "DATE"},
	{Table: "attendance", Column: "source", Definition: "TEXT NOT NULL DEFAULT 'self'"},
	{Table: "attendance", Column: "worked_hours", Definition: "NUMERIC(5,2) NOT NULL DEFAULT 0"},
	{Table: "asset_allocations", Column: "return_condition", Definition: "TEXT"},
	{Table: "announcements", Column: "pinned", Definition: "BOOLEAN NOT NULL DEFAULT false"},
	{Table: "announcements", Column: "department_id", Definition: "BIGINT REFERENCES departments(id)"},
	{Table: "announcements", Column: "notified_at", Definition: "TIMESTAMPTZ"},
	{Table: "payroll_slips", Column: "warnings", Definition: "TEXT[] NOT NULL DEFAULT '{}'"},
	{Table: "payroll_slips", Column: "file_path", Definition: "TEXT"},
	{Table: "payroll_slips", Column: "published_at", Definition: "TIMESTAMPTZ"},
	{Table: "tickets", Column: "resolved_at", Definition: "TIMESTAMPTZ"},
	{Table: "tickets", Column: "closed_at", Definition: "TIMESTAMPTZ"},
}

type PatchResult struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Added  bool   `json:"added"`
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, table, column string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM information_schema.columns
      WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
    )
  `, table, column).Scan(&exists)
	return exists, err
}

// EnsureColumns adds each missing column. Existing columns are left as is.
func EnsureColumns(ctx context.Context, pool *pgxpool.Pool, patches []ColumnPatch) ([]PatchResult, error) {
	results := make([]PatchResult, 0, len(patches))
	for _, p := range patches {
		exists, err := columnExists(ctx, pool, p.Table, p.Column)
		if err != nil {
			return results, err
		}
		if exists {
			results = append(results, PatchResult{Table: p.Table, Column: p.Column})
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			pgx.Identifier{p.Table}.Sanitize(), pgx.Identifier{p.Column}.Sanitize(), p.Definition)
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return results, fmt.Errorf("add %s.%s: %w", p.Table, p.Column, err)
		}
		slog.Info("column added", "table", p.Table, "column", p.Column)
		results = append(results, PatchResult{Table: p.Table, Column: p.Column, Added: true})
	}
	return results, nil
}

type OrphanCheck struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type Diagnosis struct {
	RowCounts         map[string]int64 `json:"rowCounts"`
	MissingColumns    []string         `json:"missingColumns"`
	Orphans           []OrphanCheck    `json:"orphans"`
	PendingMigrations []string         `json:"pendingMigrations"`
}

// Healthy reports whether nothing needs an operator's attention.
func (d Diagnosis) Healthy() bool {
	if len(d.MissingColumns) > 0 || len(d.PendingMigrations) > 0 {
		return false
	}
	for _, o := range d.Orphans {
		if o.Count > 0 {
			return false
		}
	}
	return true
}

var diagnosedTables = []string{
	"users", "employees", "departments", "attendance", "leave_requests", "leave_balances",
	"timesheet_entries", "work_updates", "assets", "asset_allocations", "announcements",
	"payroll_runs", "payroll_slips", "tickets", "notifications", "audit_events", "job_runs",
}

var orphanQueries = []struct {
	name  string
	query string
}{
	{"attendance_without_employee", `
    SELECT COUNT(*) FROM attendance a
    WHERE NOT EXISTS (SELECT 1 FROM employees e WHERE e.id = a.employee_id)`},
	{"open_allocations_on_retired_assets", `
    SELECT COUNT(*) FROM asset_allocations al JOIN assets a ON a.id = al.asset_id
    WHERE al.returned_at IS NULL AND a.status = 'retired'`},
	{"slips_without_run", `
    SELECT COUNT(*) FROM payroll_slips s
    WHERE NOT EXISTS (SELECT 1 FROM payroll_runs r WHERE r.id = s.run_id)`},
	{"users_with_missing_employee", `
    SELECT COUNT(*) FROM users u
    WHERE u.employee_id IS NOT NULL
      AND NOT EXISTS (SELECT 1 FROM employees e WHERE e.id = u.employee_id)`},
}

// Diagnose collects read-only health information about the schema and data.
func Diagnose(ctx context.Context, pool *pgxpool.Pool, migrationsDir string) (Diagnosis, error) {
	out := Diagnosis{RowCounts: map[string]int64{}, MissingColumns: []string{}}

	for _, table := range diagnosedTables {
		var n int64
		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&n); err != nil {
			return out, fmt.Errorf("count %s: %w", table, err)
		}
		out.RowCounts[table] = n
	}

	for _, p := range ColumnPatches {
		exists, err := columnExists(ctx, pool, p.Table, p.Column)
		if err != nil {
			return out, err
		}
		if !exists {
			out.MissingColumns = append(out.MissingColumns, p.Table+"."+p.Column)
		}
	}

	for _, check := range orphanQueries {
		var n int64
		if err := pool.QueryRow(ctx, check.query).Scan(&n); err != nil {
			return out, fmt.Errorf("orphan check %s: %w", check.name, err)
		}
		out.Orphans = append(out.Orphans, OrphanCheck{Name: check.name, Count: n})
	}

	pending, err := PendingMigrations(ctx, pool, migrationsDir)
	if err != nil {
		return out, err
	}
	out.PendingMigrations = pending
	if out.PendingMigrations == nil {
		out.PendingMigrations = []string{}
	}
	return out, nil
}
