package users

import (
	"context"
	"errors"
	"testing"

	"hrms/internal/domain/auth"
)

type fakeStore struct {
	users      map[int64]User
	roles      map[string]Role
	grants     map[int64][]string
	linkedEmps map[int64]bool
	nextID     int64
}

func newFakeStore() *fakeStore {
	roles := map[string]Role{}
	for i, name := range []string{auth.RoleEmployee, auth.RoleManager, auth.RoleHR, auth.RoleSystemAdmin} {
		roles[name] = Role{ID: int64(i + 1), Name: name}
	}
	return &fakeStore{users: map[int64]User{}, roles: roles, grants: map[int64][]string{}, linkedEmps: map[int64]bool{}}
}

func (f *fakeStore) Count(context.Context, Filter) (int, error) { return len(f.users), nil }

func (f *fakeStore) List(context.Context, Filter, int, int) ([]User, error) {
	var out []User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id int64) (User, error) {
	u, ok := f.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) Create(_ context.Context, email, _ string, roleID int64, employeeID *int64) (int64, error) {
	for _, u := range f.users {
		if u.Email == email {
			return 0, ErrEmailTaken
		}
	}
	f.nextID++
	role := ""
	for name, r := range f.roles {
		if r.ID == roleID {
			role = name
		}
	}
	f.users[f.nextID] = User{ID: f.nextID, Email: email, RoleID: roleID, Role: role, EmployeeID: employeeID, Active: true}
	return f.nextID, nil
}

func (f *fakeStore) EmployeeHasLogin(_ context.Context, employeeID int64) (bool, error) {
	return f.linkedEmps[employeeID], nil
}

func (f *fakeStore) RoleByName(_ context.Context, name string) (Role, error) {
	r, ok := f.roles[name]
	if !ok {
		return Role{}, ErrUnknownRole
	}
	return r, nil
}

func (f *fakeStore) GetRole(_ context.Context, id int64) (Role, error) {
	for _, r := range f.roles {
		if r.ID == id {
			return r, nil
		}
	}
	return Role{}, ErrUnknownRole
}

func (f *fakeStore) SetRole(_ context.Context, userID, roleID int64) error {
	u, ok := f.users[userID]
	if !ok {
		return ErrNotFound
	}
	r, _ := f.GetRole(context.Background(), roleID)
	u.RoleID, u.Role = roleID, r.Name
	f.users[userID] = u
	return nil
}

func (f *fakeStore) SetActive(_ context.Context, userID int64, active bool) error {
	u, ok := f.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Active = active
	f.users[userID] = u
	return nil
}

func (f *fakeStore) ListRoles(context.Context) ([]Role, error)             { return nil, nil }
func (f *fakeStore) ListPermissions(context.Context) ([]Permission, error) { return nil, nil }

func (f *fakeStore) ReplaceRolePermissions(_ context.Context, roleID int64, keys []string) error {
	f.grants[roleID] = keys
	return nil
}

func TestCreateUser(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	u, err := svc.Create(ctx, NewUser{Email: " New@Example.com", Password: "Welcome123", Role: auth.RoleManager})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "new@example.com" || u.Role != auth.RoleManager || !u.Active {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := svc.Create(ctx, NewUser{Email: "new@example.com", Password: "Welcome123", Role: auth.RoleEmployee}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	store := newFakeStore()
	store.linkedEmps[7] = true
	svc := NewService(store)
	ctx := context.Background()
	emp := int64(7)

	if _, err := svc.Create(ctx, NewUser{Email: "a@b.io", Password: "Welcome123", Role: "owner"}); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if _, err := svc.Create(ctx, NewUser{Email: "a@b.io", Password: "weak", Role: auth.RoleEmployee}); !auth.IsPasswordPolicyError(err) {
		t.Fatalf("expected password policy error, got %v", err)
	}
	if _, err := svc.Create(ctx, NewUser{Email: "a@b.io", Password: "Welcome123", Role: auth.RoleEmployee, EmployeeID: &emp}); !errors.Is(err, ErrInvalidEmployee) {
		t.Fatalf("expected ErrInvalidEmployee, got %v", err)
	}
}

func TestSelfProtection(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()
	admin, _ := svc.Create(ctx, NewUser{Email: "admin@x.io", Password: "Welcome123", Role: auth.RoleSystemAdmin})

	if _, err := svc.SetActive(ctx, admin.ID, admin.ID, false); !errors.Is(err, ErrSelfDeactivate) {
		t.Fatalf("expected ErrSelfDeactivate, got %v", err)
	}
	if _, _, err := svc.ChangeRole(ctx, admin.ID, admin.ID, auth.RoleEmployee); !errors.Is(err, ErrSelfRoleChange) {
		t.Fatalf("expected ErrSelfRoleChange, got %v", err)
	}
}

func TestDeactivateAndChangeRole(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()
	admin, _ := svc.Create(ctx, NewUser{Email: "admin@x.io", Password: "Welcome123", Role: auth.RoleSystemAdmin})
	worker, _ := svc.Create(ctx, NewUser{Email: "w@x.io", Password: "Welcome123", Role: auth.RoleEmployee})

	updated, err := svc.SetActive(ctx, admin.ID, worker.ID, false)
	if err != nil || updated.Active {
		t.Fatalf("expected deactivated user, got %+v %v", updated, err)
	}
	before, after, err := svc.ChangeRole(ctx, admin.ID, worker.ID, auth.RoleManager)
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if before.Role != auth.RoleEmployee || after.Role != auth.RoleManager {
		t.Fatalf("unexpected role change %s -> %s", before.Role, after.Role)
	}
}

func TestSetRolePermissions(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	role, err := svc.SetRolePermissions(ctx, 1, []string{auth.PermLeaveWrite, auth.PermAttendanceSelf, auth.PermLeaveWrite})
	if err != nil {
		t.Fatalf("set permissions: %v", err)
	}
	if len(role.Permissions) != 2 || role.Permissions[0] != auth.PermAttendanceSelf {
		t.Fatalf("expected deduped sorted permissions, got %v", role.Permissions)
	}
	if _, err := svc.SetRolePermissions(ctx, 1, []string{"root.everything"}); !errors.Is(err, ErrUnknownPermission) {
		t.Fatalf("expected ErrUnknownPermission, got %v", err)
	}
	if _, err := svc.SetRolePermissions(ctx, 4, []string{auth.PermUsersManage}); !errors.Is(err, ErrAdminLockout) {
		t.Fatalf("expected ErrAdminLockout, got %v", err)
	}
}
