package employees

import (
	"context"
	"strings"
	"time"

	"hrms/internal/domain/auth"
)

type Service struct {
	store StoreAPI
	Now   func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store, Now: time.Now}
}

func (s *Service) Get(ctx context.Context, employeeID int64) (Employee, error) {
	return s.store.Get(ctx, employeeID)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Employee, int, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) Create(ctx context.Context, emp Employee) (Employee, error) {
	normalize(&emp)
	if emp.Status == "" {
		emp.Status = StatusActive
	}
	if emp.Status == StatusTerminated {
		return Employee{}, ErrInvalidStatus
	}
	if err := s.checkManager(ctx, 0, emp.ManagerID); err != nil {
		return Employee{}, err
	}
	if emp.EmployeeCode == "" {
		code, err := s.store.NextEmployeeCode(ctx)
		if err != nil {
			return Employee{}, err
		}
		emp.EmployeeCode = code
	}
	id, err := s.store.Create(ctx, emp)
	if err != nil {
		return Employee{}, err
	}
	return s.store.Get(ctx, id)
}

// Update replaces the editable profile. Termination goes through Terminate.
func (s *Service) Update(ctx context.Context, employeeID int64, emp Employee) (Employee, Employee, error) {
	before, err := s.store.Get(ctx, employeeID)
	if err != nil {
		return Employee{}, Employee{}, err
	}
	normalize(&emp)
	if emp.Status == "" {
		emp.Status = before.Status
	}
	if !ValidStatus(emp.Status) {
		return Employee{}, Employee{}, ErrInvalidStatus
	}
	if emp.Status == StatusTerminated && before.Status != StatusTerminated {
		return Employee{}, Employee{}, ErrInvalidStatus
	}
	if err := s.checkManager(ctx, employeeID, emp.ManagerID); err != nil {
		return Employee{}, Employee{}, err
	}
	if emp.BankAccount == "" {
		emp.BankAccount = before.BankAccount
	}
	if err := s.store.Update(ctx, employeeID, emp); err != nil {
		return Employee{}, Employee{}, err
	}
	after, err := s.store.Get(ctx, employeeID)
	return before, after, err
}

func (s *Service) Terminate(ctx context.Context, employeeID int64, on time.Time) (Employee, error) {
	emp, err := s.store.Get(ctx, employeeID)
	if err != nil {
		return Employee{}, err
	}
	if emp.Status == StatusTerminated {
		return Employee{}, ErrAlreadyTerminated
	}
	if on.IsZero() {
		on = s.Now()
	}
	if err := s.store.Terminate(ctx, employeeID, time.Date(on.Year(), on.Month(), on.Day(), 0, 0, 0, 0, time.UTC)); err != nil {
		return Employee{}, err
	}
	return s.store.Get(ctx, employeeID)
}

func (s *Service) IsManagerOf(ctx context.Context, managerEmployeeID, employeeID int64) (bool, error) {
	if managerEmployeeID <= 0 || employeeID <= 0 {
		return false, nil
	}
	return s.store.IsManagerOf(ctx, managerEmployeeID, employeeID)
}

// CanView reports whether the caller may read the employee's records:
// HR and system admins see everyone, managers their direct reports, and
// everybody themself.
func (s *Service) CanView(ctx context.Context, user auth.UserContext, employeeID int64) (bool, error) {
	if auth.IsPrivileged(user.RoleName) {
		return true, nil
	}
	if user.EmployeeID == employeeID {
		return true, nil
	}
	if user.RoleName == auth.RoleManager {
		return s.IsManagerOf(ctx, user.EmployeeID, employeeID)
	}
	return false, nil
}

func (s *Service) checkManager(ctx context.Context, employeeID int64, managerID *int64) error {
	if managerID == nil {
		return nil
	}
	if *managerID == employeeID || *managerID <= 0 {
		return ErrInvalidManager
	}
	exists, err := s.store.Exists(ctx, *managerID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrInvalidManager
	}
	if employeeID == 0 {
		return nil
	}
	chain, err := s.store.ManagerChain(ctx, *managerID)
	if err != nil {
		return err
	}
	for _, id := range chain {
		if id == employeeID {
			return ErrManagerCycle
		}
	}
	return nil
}

func normalize(emp *Employee) {
	emp.FirstName = strings.TrimSpace(emp.FirstName)
	emp.LastName = strings.TrimSpace(emp.LastName)
	emp.Email = strings.ToLower(strings.TrimSpace(emp.Email))
	emp.Phone = strings.TrimSpace(emp.Phone)
	emp.EmployeeCode = strings.ToUpper(strings.TrimSpace(emp.EmployeeCode))
	emp.BankAccount = strings.ReplaceAll(strings.TrimSpace(emp.BankAccount), " ", "")
}
