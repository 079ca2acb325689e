package leave

import "errors"

var (
	ErrNotFound            = errors.New("leave request not found")
	ErrTypeNotFound        = errors.New("leave type not found")
	ErrDuplicateType       = errors.New("leave type code already exists")
	ErrForbidden           = errors.New("not allowed to act on this leave request")
	ErrHRApprovalRequired  = errors.New("hr approval required")
	ErrInvalidState        = errors.New("leave request is not in a valid state for this action")
	ErrInvalidRange        = errors.New("invalid leave date range")
	ErrNoWorkingDays       = errors.New("leave range contains no working days")
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrOverlap             = errors.New("leave request overlaps an existing request")
	ErrInvalidPolicy       = errors.New("invalid leave policy")
)
