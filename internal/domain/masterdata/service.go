package masterdata

import (
	"context"
	"strings"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.store.ListDepartments(ctx)
}

func (s *Service) CreateDepartment(ctx context.Context, dept Department) (Department, error) {
	dept.Name = strings.TrimSpace(dept.Name)
	dept.Code = strings.ToUpper(strings.TrimSpace(dept.Code))
	if dept.Name == "" {
		return Department{}, ErrInvalidName
	}
	id, err := s.store.CreateDepartment(ctx, dept)
	if err != nil {
		return Department{}, err
	}
	return s.store.GetDepartment(ctx, id)
}

func (s *Service) UpdateDepartment(ctx context.Context, id int64, dept Department) (Department, error) {
	dept.Name = strings.TrimSpace(dept.Name)
	dept.Code = strings.ToUpper(strings.TrimSpace(dept.Code))
	if dept.Name == "" {
		return Department{}, ErrInvalidName
	}
	if err := s.store.UpdateDepartment(ctx, id, dept); err != nil {
		return Department{}, err
	}
	return s.store.GetDepartment(ctx, id)
}

// DeleteDepartment refuses while any employee row still points at the
// department.
func (s *Service) DeleteDepartment(ctx context.Context, id int64) error {
	if _, err := s.store.GetDepartment(ctx, id); err != nil {
		return err
	}
	count, err := s.store.DepartmentEmployeeCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrInUse
	}
	return s.store.DeleteDepartment(ctx, id)
}

func (s *Service) ListDesignations(ctx context.Context, departmentID int64) ([]Designation, error) {
	return s.store.ListDesignations(ctx, departmentID)
}

func (s *Service) CreateDesignation(ctx context.Context, d Designation) (Designation, error) {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return Designation{}, ErrInvalidName
	}
	id, err := s.store.CreateDesignation(ctx, d)
	if err != nil {
		return Designation{}, err
	}
	d.ID = id
	return d, nil
}

func (s *Service) UpdateDesignation(ctx context.Context, id int64, d Designation) (Designation, error) {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return Designation{}, ErrInvalidName
	}
	if err := s.store.UpdateDesignation(ctx, id, d); err != nil {
		return Designation{}, err
	}
	d.ID = id
	return d, nil
}

func (s *Service) DeleteDesignation(ctx context.Context, id int64) error {
	return s.store.DeleteDesignation(ctx, id)
}

func (s *Service) ListLocations(ctx context.Context) ([]Location, error) {
	return s.store.ListLocations(ctx)
}

func (s *Service) CreateLocation(ctx context.Context, loc Location) (Location, error) {
	loc.Name = strings.TrimSpace(loc.Name)
	loc.Address = strings.TrimSpace(loc.Address)
	if loc.Name == "" {
		return Location{}, ErrInvalidName
	}
	id, err := s.store.CreateLocation(ctx, loc)
	if err != nil {
		return Location{}, err
	}
	loc.ID = id
	return loc, nil
}

func (s *Service) UpdateLocation(ctx context.Context, id int64, loc Location) (Location, error) {
	loc.Name = strings.TrimSpace(loc.Name)
	loc.Address = strings.TrimSpace(loc.Address)
	if loc.Name == "" {
		return Location{}, ErrInvalidName
	}
	if err := s.store.UpdateLocation(ctx, id, loc); err != nil {
		return Location{}, err
	}
	loc.ID = id
	return loc, nil
}

func (s *Service) DeleteLocation(ctx context.Context, id int64) error {
	return s.store.DeleteLocation(ctx, id)
}

func (s *Service) ListProjects(ctx context.Context, status string, limit, offset int) ([]Project, int, error) {
	if status != "" && !ValidProjectStatus(status) {
		return nil, 0, ErrInvalidStatus
	}
	total, err := s.store.CountProjects(ctx, status)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.ListProjects(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) GetProject(ctx context.Context, id int64) (Project, error) {
	return s.store.GetProject(ctx, id)
}

func (s *Service) CreateProject(ctx context.Context, p Project) (Project, error) {
	if err := normalizeProject(&p); err != nil {
		return Project{}, err
	}
	id, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return Project{}, err
	}
	return s.store.GetProject(ctx, id)
}

func (s *Service) UpdateProject(ctx context.Context, id int64, p Project) (Project, Project, error) {
	before, err := s.store.GetProject(ctx, id)
	if err != nil {
		return Project{}, Project{}, err
	}
	if p.Status == "" {
		p.Status = before.Status
	}
	if err := normalizeProject(&p); err != nil {
		return Project{}, Project{}, err
	}
	if err := s.store.UpdateProject(ctx, id, p); err != nil {
		return Project{}, Project{}, err
	}
	after, err := s.store.GetProject(ctx, id)
	return before, after, err
}

func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	return s.store.DeleteProject(ctx, id)
}

func (s *Service) ListAssignments(ctx context.Context, projectID int64) ([]Assignment, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListAssignments(ctx, projectID)
}

func (s *Service) Assign(ctx context.Context, a Assignment) (Assignment, error) {
	if _, err := s.store.GetProject(ctx, a.ProjectID); err != nil {
		return Assignment{}, err
	}
	if a.AllocationPercent == 0 {
		a.AllocationPercent = 100
	}
	if a.AllocationPercent < 1 || a.AllocationPercent > 100 {
		return Assignment{}, ErrInvalidPercent
	}
	if a.StartDate != nil && a.EndDate != nil && a.EndDate.Before(*a.StartDate) {
		return Assignment{}, ErrInvalidDates
	}
	a.Role = strings.TrimSpace(a.Role)
	id, err := s.store.CreateAssignment(ctx, a)
	if err != nil {
		return Assignment{}, err
	}
	a.ID = id
	return a, nil
}

func (s *Service) Unassign(ctx context.Context, projectID, assignmentID int64) error {
	return s.store.DeleteAssignment(ctx, projectID, assignmentID)
}

func normalizeProject(p *Project) error {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if p.Status == "" {
		p.Status = ProjectActive
	}
	if p.Name == "" || p.Code == "" {
		return ErrInvalidName
	}
	if !ValidProjectStatus(p.Status) {
		return ErrInvalidStatus
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return ErrInvalidDates
	}
	return nil
}
