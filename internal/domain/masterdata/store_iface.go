package masterdata

import "context"

type StoreAPI interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	GetDepartment(ctx context.Context, id int64) (Department, error)
	CreateDepartment(ctx context.Context, dept Department) (int64, error)
	UpdateDepartment(ctx context.Context, id int64, dept Department) error
	DeleteDepartment(ctx context.Context, id int64) error
	DepartmentEmployeeCount(ctx context.Context, id int64) (int, error)

	ListDesignations(ctx context.Context, departmentID int64) ([]Designation, error)
	CreateDesignation(ctx context.Context, d Designation) (int64, error)
	UpdateDesignation(ctx context.Context, id int64, d Designation) error
	DeleteDesignation(ctx context.Context, id int64) error

	ListLocations(ctx context.Context) ([]Location, error)
	CreateLocation(ctx context.Context, loc Location) (int64, error)
	UpdateLocation(ctx context.Context, id int64, loc Location) error
	DeleteLocation(ctx context.Context, id int64) error

	CountProjects(ctx context.Context, status string) (int, error)
	ListProjects(ctx context.Context, status string, limit, offset int) ([]Project, error)
	GetProject(ctx context.Context, id int64) (Project, error)
	CreateProject(ctx context.Context, p Project) (int64, error)
	UpdateProject(ctx context.Context, id int64, p Project) error
	DeleteProject(ctx context.Context, id int64) error

	ListAssignments(ctx context.Context, projectID int64) ([]Assignment, error)
	CreateAssignment(ctx context.Context, a Assignment) (int64, error)
	DeleteAssignment(ctx context.Context, projectID, assignmentID int64) error
}
