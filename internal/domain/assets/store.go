package assets

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrms/internal/platform/db"
)

type StoreAPI interface {
	Get(ctx context.Context, id int64) (Asset, error)
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Asset, error)
	Create(ctx context.Context, asset Asset) (int64, error)
	Update(ctx context.Context, asset Asset) error
	SetStatus(ctx context.Context, id int64, from, to string) error
	Allocate(ctx context.Context, assetID, employeeID, allocatedBy int64, notes string) (int64, error)
	Return(ctx context.Context, assetID int64, condition, nextStatus, notes string) error
	ListAllocations(ctx context.Context, assetID int64) ([]Allocation, error)
	HeldBy(ctx context.Context, employeeID int64) ([]Allocation, error)
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

const assetColumns = `
    a.id, a.tag, a.name, a.category, COALESCE(a.serial_number, ''), a.purchase_date, a.cost::float8,
    a.status, COALESCE(a.notes, ''), al.employee_id, COALESCE(e.first_name || ' ' || e.last_name, ''),
    a.created_at, a.updated_at`

const assetFrom = `
    FROM assets a
    LEFT JOIN asset_allocations al ON al.asset_id = a.id AND al.returned_at IS NULL
    LEFT JOIN employees e ON e.id = al.employee_id`

func scanAsset(row pgx.Row) (Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.Tag, &a.Name, &a.Category, &a.SerialNumber, &a.PurchaseDate, &a.Cost,
		&a.Status, &a.Notes, &a.HolderID, &a.HolderName, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func assetWhere(filter Filter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, strings.ReplaceAll(clause, "$?", fmt.Sprintf("$%d", len(args))))
	}
	if filter.Status != "" {
		add("a.status = $?", filter.Status)
	}
	if filter.Category != "" {
		add("a.category = $?", filter.Category)
	}
	if filter.Query != "" {
		add("(a.tag ILIKE $? OR a.name ILIKE $? OR a.serial_number ILIKE $?)", "%"+filter.Query+"%")
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) Get(ctx context.Context, id int64) (Asset, error) {
	a, err := scanAsset(s.DB.QueryRow(ctx, "SELECT "+assetColumns+assetFrom+" WHERE a.id = $1", id))
	if db.IsNoRows(err) {
		return Asset{}, ErrNotFound
	}
	return a, err
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := assetWhere(filter)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(*) FROM assets a"+where, args...).Scan(&total)
	return total, err
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]Asset, error) {
	where, args := assetWhere(filter)
	args = append(args, limit, offset)
	rows, err := s.DB.Query(ctx, "SELECT "+assetColumns+assetFrom+where+
		fmt.Sprintf(" ORDER BY a.tag LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, a Asset) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO assets (tag, name, category, serial_number, purchase_date, cost, status, notes)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    RETURNING id
  `, a.Tag, a.Name, a.Category, nullIfEmpty(a.SerialNumber), a.PurchaseDate, a.Cost, a.Status, nullIfEmpty(a.Notes)).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateTag
	}
	return id, err
}

func (s *Store) Update(ctx context.Context, a Asset) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE assets
    SET name = $2, category = $3, serial_number = $4, purchase_date = $5, cost = $6, notes = $7, updated_at = now()
    WHERE id = $1
  `, a.ID, a.Name, a.Category, nullIfEmpty(a.SerialNumber), a.PurchaseDate, a.Cost, nullIfEmpty(a.Notes))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus changes the status only if it still equals from.
func (s *Store) SetStatus(ctx context.Context, id int64, from, to string) error {
	cmd, err := s.DB.Exec(ctx, "UPDATE assets SET status = $3, updated_at = now() WHERE id = $1 AND status = $2", id, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

func (s *Store) Allocate(ctx context.Context, assetID, employeeID, allocatedBy int64, notes string) (int64, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var active bool
	err = tx.QueryRow(ctx, "SELECT status <> 'terminated' FROM employees WHERE id = $1", employeeID).Scan(&active)
	if db.IsNoRows(err) || (err == nil && !active) {
		return 0, ErrInvalidEmployee
	}
	if err != nil {
		return 0, err
	}

	cmd, err := tx.Exec(ctx, "UPDATE assets SET status = 'allocated', updated_at = now() WHERE id = $1 AND status = 'available'", assetID)
	if err != nil {
		return 0, err
	}
	if cmd.RowsAffected() == 0 {
		return 0, ErrNotAvailable
	}

	var id int64
	if err := tx.QueryRow(ctx, `
    INSERT INTO asset_allocations (asset_id, employee_id, allocated_by, notes)
    VALUES ($1, $2, $3, $4)
    RETURNING id
  `, assetID, employeeID, allocatedBy, nullIfEmpty(notes)).Scan(&id); err != nil {
		return 0, err
	}
	return id, tx.Commit(ctx)
}

func (s *Store) Return(ctx context.Context, assetID int64, condition, nextStatus, notes string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, "UPDATE assets SET status = $2, updated_at = now() WHERE id = $1 AND status = 'allocated'", assetID, nextStatus)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotAllocated
	}
	if _, err := tx.Exec(ctx, `
    UPDATE asset_allocations
    SET returned_at = now(), return_condition = $2, notes = COALESCE($3, notes)
    WHERE asset_id = $1 AND returned_at IS NULL
  `, assetID, condition, nullIfEmpty(notes)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const allocationColumns = `
    al.id, al.asset_id, a.tag, a.name, al.employee_id, e.first_name || ' ' || e.last_name, al.allocated_by,
    al.allocated_at, al.returned_at, COALESCE(al.return_condition, ''), COALESCE(al.notes, '')`

const allocationFrom = `
    FROM asset_allocations al
    JOIN assets a ON a.id = al.asset_id
    JOIN employees e ON e.id = al.employee_id`

func (s *Store) queryAllocations(ctx context.Context, where string, arg int64) ([]Allocation, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+allocationColumns+allocationFrom+where+" ORDER BY al.allocated_at DESC", arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Allocation
	for rows.Next() {
		var al Allocation
		if err := rows.Scan(&al.ID, &al.AssetID, &al.AssetTag, &al.AssetName, &al.EmployeeID, &al.EmployeeName, &al.AllocatedBy,
			&al.AllocatedAt, &al.ReturnedAt, &al.ReturnCondition, &al.Notes); err != nil {
			return nil, err
		}
		out = append(out, al)
	}
	return out, rows.Err()
}

func (s *Store) ListAllocations(ctx context.Context, assetID int64) ([]Allocation, error) {
	return s.queryAllocations(ctx, " WHERE al.asset_id = $1", assetID)
}

func (s *Store) HeldBy(ctx context.Context, employeeID int64) ([]Allocation, error) {
	return s.queryAllocations(ctx, " WHERE al.employee_id = $1 AND al.returned_at IS NULL", employeeID)
}
