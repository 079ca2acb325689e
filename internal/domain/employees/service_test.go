package employees

import (
	"context"
	"errors"
	"testing"
	"time"

	"hrms/internal/domain/auth"
)

type fakeStore struct {
	items map[int64]Employee
	next  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[int64]Employee{}}
}

func (f *fakeStore) Get(_ context.Context, id int64) (Employee, error) {
	emp, ok := f.items[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return emp, nil
}

func (f *fakeStore) Count(context.Context, Filter) (int, error) { return len(f.items), nil }

func (f *fakeStore) List(context.Context, Filter, int, int) ([]Employee, error) {
	var out []Employee
	for _, emp := range f.items {
		out = append(out, emp)
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, emp Employee) (int64, error) {
	for _, existing := range f.items {
		if existing.Email == emp.Email {
			return 0, ErrDuplicate
		}
	}
	f.next++
	emp.ID = f.next
	f.items[emp.ID] = emp
	return emp.ID, nil
}

func (f *fakeStore) Update(_ context.Context, id int64, emp Employee) error {
	existing, ok := f.items[id]
	if !ok {
		return ErrNotFound
	}
	emp.ID = id
	emp.EmployeeCode = existing.EmployeeCode
	f.items[id] = emp
	return nil
}

func (f *fakeStore) Terminate(_ context.Context, id int64, on time.Time) error {
	emp := f.items[id]
	emp.Status = StatusTerminated
	emp.TerminatedAt = &on
	f.items[id] = emp
	return nil
}

func (f *fakeStore) IsManagerOf(_ context.Context, managerID, employeeID int64) (bool, error) {
	emp, ok := f.items[employeeID]
	return ok && emp.ManagerID != nil && *emp.ManagerID == managerID, nil
}

func (f *fakeStore) ManagerChain(_ context.Context, id int64) ([]int64, error) {
	var chain []int64
	current := f.items[id]
	for current.ManagerID != nil && len(chain) < 50 {
		chain = append(chain, *current.ManagerID)
		current = f.items[*current.ManagerID]
	}
	return chain, nil
}

func (f *fakeStore) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := f.items[id]
	return ok, nil
}

func (f *fakeStore) NextEmployeeCode(context.Context) (string, error) {
	return "EMP00042", nil
}

func ptr(v int64) *int64 { return &v }

func TestCreateDefaultsStatusAndCode(t *testing.T) {
	svc := NewService(newFakeStore())
	emp, err := svc.Create(context.Background(), Employee{FirstName: " Ana ", LastName: "Silva", Email: "Ana@Example.com "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if emp.Status != StatusActive || emp.EmployeeCode != "EMP00042" || emp.Email != "ana@example.com" || emp.FirstName != "Ana" {
		t.Fatalf("unexpected employee %+v", emp)
	}
}

func TestCreateRejectsUnknownManager(t *testing.T) {
	svc := NewService(newFakeStore())
	_, err := svc.Create(context.Background(), Employee{FirstName: "A", LastName: "B", Email: "a@b.c", ManagerID: ptr(99)})
	if !errors.Is(err, ErrInvalidManager) {
		t.Fatalf("expected ErrInvalidManager, got %v", err)
	}
}

func TestUpdateRejectsReportingCycle(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()
	boss, _ := svc.Create(ctx, Employee{FirstName: "Boss", LastName: "X", Email: "boss@x.io"})
	lead, _ := svc.Create(ctx, Employee{FirstName: "Lead", LastName: "X", Email: "lead@x.io", ManagerID: ptr(boss.ID)})

	_, _, err := svc.Update(ctx, boss.ID, Employee{FirstName: "Boss", LastName: "X", Email: "boss@x.io", ManagerID: ptr(lead.ID)})
	if !errors.Is(err, ErrManagerCycle) {
		t.Fatalf("expected ErrManagerCycle, got %v", err)
	}
	_, _, err = svc.Update(ctx, boss.ID, Employee{FirstName: "Boss", LastName: "X", Email: "boss@x.io", ManagerID: ptr(boss.ID)})
	if !errors.Is(err, ErrInvalidManager) {
		t.Fatalf("expected ErrInvalidManager for self, got %v", err)
	}
}

func TestUpdateKeepsBankAccountWhenOmitted(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()
	emp, _ := svc.Create(ctx, Employee{FirstName: "A", LastName: "B", Email: "a@b.io", BankAccount: "1234 5678"})
	if emp.BankAccount != "12345678" {
		t.Fatalf("expected normalized bank account, got %q", emp.BankAccount)
	}
	_, after, err := svc.Update(ctx, emp.ID, Employee{FirstName: "A", LastName: "C", Email: "a@b.io"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if after.BankAccount != "12345678" || after.LastName != "C" {
		t.Fatalf("unexpected update result %+v", after)
	}
}

func TestUpdateCannotTerminateDirectly(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()
	emp, _ := svc.Create(ctx, Employee{FirstName: "A", LastName: "B", Email: "a@b.io"})
	if _, _, err := svc.Update(ctx, emp.ID, Employee{FirstName: "A", LastName: "B", Email: "a@b.io", Status: StatusTerminated}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestTerminateTwice(t *testing.T) {
	svc := NewService(newFakeStore())
	svc.Now = func() time.Time { return time.Date(2026, 5, 4, 13, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	emp, _ := svc.Create(ctx, Employee{FirstName: "A", LastName: "B", Email: "a@b.io"})

	terminated, err := svc.Terminate(ctx, emp.ID, time.Time{})
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if terminated.Status != StatusTerminated || terminated.TerminatedAt == nil || terminated.TerminatedAt.Day() != 4 {
		t.Fatalf("unexpected termination %+v", terminated)
	}
	if _, err := svc.Terminate(ctx, emp.ID, time.Time{}); !errors.Is(err, ErrAlreadyTerminated) {
		t.Fatalf("expected ErrAlreadyTerminated, got %v", err)
	}
}

func TestCanView(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()
	mgr, _ := svc.Create(ctx, Employee{FirstName: "M", LastName: "X", Email: "m@x.io"})
	rep, _ := svc.Create(ctx, Employee{FirstName: "R", LastName: "X", Email: "r@x.io", ManagerID: ptr(mgr.ID)})
	other, _ := svc.Create(ctx, Employee{FirstName: "O", LastName: "X", Email: "o@x.io"})

	cases := []struct {
		name string
		user auth.UserContext
		id   int64
		want bool
	}{
		{"hr sees anyone", auth.UserContext{RoleName: auth.RoleHR}, other.ID, true},
		{"manager sees report", auth.UserContext{RoleName: auth.RoleManager, EmployeeID: mgr.ID}, rep.ID, true},
		{"manager cannot see stranger", auth.UserContext{RoleName: auth.RoleManager, EmployeeID: mgr.ID}, other.ID, false},
		{"employee sees self", auth.UserContext{RoleName: auth.RoleEmployee, EmployeeID: rep.ID}, rep.ID, true},
		{"employee cannot see manager", auth.UserContext{RoleName: auth.RoleEmployee, EmployeeID: rep.ID}, mgr.ID, false},
	}
	for _, tc := range cases {
		got, err := svc.CanView(ctx, tc.user, tc.id)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
