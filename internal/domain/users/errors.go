package users

import "errors"

var (
	ErrNotFound          = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrUnknownRole       = errors.New("unknown role")
	ErrUnknownPermission = errors.New("unknown permission")
	ErrInvalidEmployee   = errors.New("employee does not exist or already has a login")
	ErrSelfDeactivate    = errors.New("you cannot deactivate your own account")
	ErrSelfRoleChange    = errors.New("you cannot change your own role")
	ErrAdminLockout      = errors.New("system_admin role must keep admin.system")
)
