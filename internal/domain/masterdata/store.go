package masterdata

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrms/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func translateWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err):
		return ErrDuplicate
	case db.IsForeignKeyViolation(err):
		return ErrInvalidReference
	}
	return err
}

func translateDeleteError(err error) error {
	if db.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	return err
}

func affected(cmd pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

const departmentSelect = `
    SELECT d.id, d.name, COALESCE(d.code, ''),
      (SELECT COUNT(1) FROM employees e WHERE e.department_id = d.id AND e.status <> 'terminated'),
      d.created_at, d.updated_at
    FROM departments d`

func scanDepartment(row pgx.Row) (Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Code, &d.EmployeeCount, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.DB.Query(ctx, departmentSelect+" ORDER BY d.name")
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r pgx.Rows) (Department, error) { return scanDepartment(r) })
}

func (s *Store) GetDepartment(ctx context.Context, id int64) (Department, error) {
	d, err := scanDepartment(s.DB.QueryRow(ctx, departmentSelect+" WHERE d.id = $1", id))
	if db.IsNoRows(err) {
		return Department{}, ErrNotFound
	}
	return d, err
}

func (s *Store) CreateDepartment(ctx context.Context, dept Department) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, "INSERT INTO departments (name, code) VALUES ($1, $2) RETURNING id", dept.Name, nullIfEmpty(dept.Code)).Scan(&id)
	return id, translateWriteError(err)
}

func (s *Store) UpdateDepartment(ctx context.Context, id int64, dept Department) error {
	cmd, err := s.DB.Exec(ctx, "UPDATE departments SET name = $1, code = $2, updated_at = now() WHERE id = $3", dept.Name, nullIfEmpty(dept.Code), id)
	return affected(cmd, translateWriteError(err))
}

func (s *Store) DeleteDepartment(ctx context.Context, id int64) error {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM departments WHERE id = $1", id)
	return affected(cmd, translateDeleteError(err))
}

// DepartmentEmployeeCount includes terminated employees because their rows
// still reference the department.
func (s *Store) DepartmentEmployeeCount(ctx context.Context, id int64) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE department_id = $1", id).Scan(&count)
	return count, err
}

func (s *Store) ListDesignations(ctx context.Context, departmentID int64) ([]Designation, error) {
	query := "SELECT id, title, department_id, created_at, updated_at FROM designations"
	var args []any
	if departmentID > 0 {
		query += " WHERE department_id = $1"
		args = append(args, departmentID)
	}
	rows, err := s.DB.Query(ctx, query+" ORDER BY title", args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r pgx.Rows) (Designation, error) {
		var d Designation
		err := r.Scan(&d.ID, &d.Title, &d.DepartmentID, &d.CreatedAt, &d.UpdatedAt)
		return d, err
	})
}

func (s *Store) CreateDesignation(ctx context.Context, d Designation) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, "INSERT INTO designations (title, department_id) VALUES ($1, $2) RETURNING id", d.Title, d.DepartmentID).Scan(&id)
	return id, translateWriteError(err)
}

func (s *Store) UpdateDesignation(ctx context.Context, id int64, d Designation) error {
	cmd, err := s.DB.Exec(ctx, "UPDATE designations SET title = $1, department_id = $2, updated_at = now() WHERE id = $3", d.Title, d.DepartmentID, id)
	return affected(cmd, translateWriteError(err))
}

func (s *Store) DeleteDesignation(ctx context.Context, id int64) error {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM designations WHERE id = $1", id)
	return affected(cmd, translateDeleteError(err))
}

func (s *Store) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, name, COALESCE(address, ''), created_at, updated_at FROM locations ORDER BY name")
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r pgx.Rows) (Location, error) {
		var l Location
		err := r.Scan(&l.ID, &l.Name, &l.Address, &l.CreatedAt, &l.UpdatedAt)
		return l, err
	})
}

func (s *Store) CreateLocation(ctx context.Context, loc Location) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, "INSERT INTO locations (name, address) VALUES ($1, $2) RETURNING id", loc.Name, nullIfEmpty(loc.Address)).Scan(&id)
	return id, translateWriteError(err)
}

func (s *Store) UpdateLocation(ctx context.Context, id int64, loc Location) error {
	cmd, err := s.DB.Exec(ctx, "UPDATE locations SET name = $1, address = $2, updated_at = now() WHERE id = $3", loc.Name, nullIfEmpty(loc.Address), id)
	return affected(cmd, translateWriteError(err))
}

func (s *Store) DeleteLocation(ctx context.Context, id int64) error {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM locations WHERE id = $1", id)
	return affected(cmd, translateDeleteError(err))
}

const projectSelect = `SELECT id, code, name, COALESCE(description, ''), status, start_date, end_date, created_at, updated_at FROM projects`

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Status, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) CountProjects(ctx context.Context, status string) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM projects WHERE ($1 = '' OR status = $1)", status).Scan(&total)
	return total, err
}

func (s *Store) ListProjects(ctx context.Context, status string, limit, offset int) ([]Project, error) {
	rows, err := s.DB.Query(ctx, projectSelect+" WHERE ($1 = '' OR status = $1) ORDER BY name LIMIT $2 OFFSET $3", status, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r pgx.Rows) (Project, error) { return scanProject(r) })
}

func (s *Store) GetProject(ctx context.Context, id int64) (Project, error) {
	p, err := scanProject(s.DB.QueryRow(ctx, projectSelect+" WHERE id = $1", id))
	if db.IsNoRows(err) {
		return Project{}, ErrNotFound
	}
	return p, err
}

func (s *Store) CreateProject(ctx context.Context, p Project) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO projects (code, name, description, status, start_date, end_date)
    VALUES ($1, $2, $3, $4, $5, $6) RETURNING id
  `, p.Code, p.Name, nullIfEmpty(p.Description), p.Status, p.StartDate, p.EndDate).Scan(&id)
	return id, translateWriteError(err)
}

func (s *Store) UpdateProject(ctx context.Context, id int64, p Project) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE projects
    SET code = $1, name = $2, description = $3, status = $4, start_date = $5, end_date = $6, updated_at = now()
    WHERE id = $7
  `, p.Code, p.Name, nullIfEmpty(p.Description), p.Status, p.StartDate, p.EndDate, id)
	return affected(cmd, translateWriteError(err))
}

func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM projects WHERE id = $1", id)
	return affected(cmd, translateDeleteError(err))
}

func (s *Store) ListAssignments(ctx context.Context, projectID int64) ([]Assignment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT a.id, a.project_id, a.employee_id, e.first_name || ' ' || e.last_name, COALESCE(a.role, ''),
      a.allocation_percent, a.start_date, a.end_date, a.created_at
    FROM project_assignments a
    JOIN employees e ON e.id = a.employee_id
    WHERE a.project_id = $1
    ORDER BY e.last_name, e.first_name
  `, projectID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r pgx.Rows) (Assignment, error) {
		var a Assignment
		err := r.Scan(&a.ID, &a.ProjectID, &a.EmployeeID, &a.EmployeeName, &a.Role, &a.AllocationPercent, &a.StartDate, &a.EndDate, &a.CreatedAt)
		return a, err
	})
}

func (s *Store) CreateAssignment(ctx context.Context, a Assignment) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO project_assignments (project_id, employee_id, role, allocation_percent, start_date, end_date)
    VALUES ($1, $2, $3, $4, $5, $6) RETURNING id
  `, a.ProjectID, a.EmployeeID, nullIfEmpty(a.Role), a.AllocationPercent, a.StartDate, a.EndDate).Scan(&id)
	return id, translateWriteError(err)
}

func (s *Store) DeleteAssignment(ctx context.Context, projectID, assignmentID int64) error {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM project_assignments WHERE id = $1 AND project_id = $2", assignmentID, projectID)
	return affected(cmd, err)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

