package employees

import "errors"

var (
	ErrNotFound          = errors.New("employee not found")
	ErrDuplicate         = errors.New("employee email or code already exists")
	ErrInvalidManager    = errors.New("manager must be another existing employee")
	ErrManagerCycle      = errors.New("manager assignment would create a reporting cycle")
	ErrAlreadyTerminated = errors.New("employee already terminated")
	ErrInvalidStatus     = errors.New("invalid employee status")
	ErrInvalidReference  = errors.New("department, designation or location does not exist")
)
