package timesheets

import "errors"

var (
	ErrNotFound         = errors.New("timesheet entry not found")
	ErrInvalidHours     = errors.New("hours must be greater than 0 and at most 24")
	ErrDailyLimit       = errors.New("daily timesheet total would exceed 24 hours")
	ErrNotEditable      = errors.New("timesheet entry can no longer be edited")
	ErrInvalidState     = errors.New("timesheet entry is not in a valid state for this action")
	ErrForbidden        = errors.New("not allowed to act on this timesheet entry")
	ErrInvalidProject   = errors.New("project does not exist")
	ErrNothingToSubmit  = errors.New("no draft entries in this week")
	ErrEmptyDescription = errors.New("description is required")
)
