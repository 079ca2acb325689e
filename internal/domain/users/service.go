package users

import (
	"context"
	"sort"
	"strings"

	"hrms/internal/domain/auth"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]User, int, error) {
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.List(ctx, filter, limit, offset)
	return items, total, err
}

func (s *Service) Get(ctx context.Context, userID int64) (User, error) {
	return s.store.Get(ctx, userID)
}

func (s *Service) Create(ctx context.Context, input NewUser) (User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !auth.ValidRole(input.Role) {
		return User{}, ErrUnknownRole
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return User{}, err
	}
	if input.EmployeeID != nil {
		linked, err := s.store.EmployeeHasLogin(ctx, *input.EmployeeID)
		if err != nil {
			return User{}, err
		}
		if linked {
			return User{}, ErrInvalidEmployee
		}
	}
	role, err := s.store.RoleByName(ctx, input.Role)
	if err != nil {
		return User{}, err
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return User{}, err
	}
	id, err := s.store.Create(ctx, email, hash, role.ID, input.EmployeeID)
	if err != nil {
		return User{}, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) ChangeRole(ctx context.Context, actorID, userID int64, roleName string) (User, User, error) {
	if actorID == userID {
		return User{}, User{}, ErrSelfRoleChange
	}
	if !auth.ValidRole(roleName) {
		return User{}, User{}, ErrUnknownRole
	}
	before, err := s.store.Get(ctx, userID)
	if err != nil {
		return User{}, User{}, err
	}
	role, err := s.store.RoleByName(ctx, roleName)
	if err != nil {
		return User{}, User{}, err
	}
	if err := s.store.SetRole(ctx, userID, role.ID); err != nil {
		return User{}, User{}, err
	}
	after, err := s.store.Get(ctx, userID)
	return before, after, err
}

func (s *Service) SetActive(ctx context.Context, actorID, userID int64, active bool) (User, error) {
	if !active && actorID == userID {
		return User{}, ErrSelfDeactivate
	}
	if err := s.store.SetActive(ctx, userID, active); err != nil {
		return User{}, err
	}
	return s.store.Get(ctx, userID)
}

func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// SetRolePermissions replaces a role's grants with the given known keys.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, keys []string) (Role, error) {
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return Role{}, err
	}
	known := make(map[string]bool, len(auth.DefaultPermissions))
	for _, key := range auth.DefaultPermissions {
		known[key] = true
	}
	seen := map[string]bool{}
	cleaned := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if !known[key] {
			return Role{}, ErrUnknownPermission
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		cleaned = append(cleaned, key)
	}
	if role.Name == auth.RoleSystemAdmin && !seen[auth.PermSystemAdmin] {
		return Role{}, ErrAdminLockout
	}
	sort.Strings(cleaned)
	if err := s.store.ReplaceRolePermissions(ctx, roleID, cleaned); err != nil {
		return Role{}, err
	}
	role.Permissions = cleaned
	return role, nil
}
