package users

import "context"

type StoreAPI interface {
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]User, error)
	Get(ctx context.Context, userID int64) (User, error)
	Create(ctx context.Context, email, passwordHash string, roleID int64, employeeID *int64) (int64, error)
	EmployeeHasLogin(ctx context.Context, employeeID int64) (bool, error)
	RoleByName(ctx context.Context, name string) (Role, error)
	GetRole(ctx context.Context, roleID int64) (Role, error)
	SetRole(ctx context.Context, userID, roleID int64) error
	SetActive(ctx context.Context, userID int64, active bool) error
	ListRoles(ctx context.Context) ([]Role, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	ReplaceRolePermissions(ctx context.Context, roleID int64, keys []string) error
}
