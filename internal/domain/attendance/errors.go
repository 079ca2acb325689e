package attendance

import "errors"

var (
	ErrNotFound          = errors.New("attendance record not found")
	ErrNotCheckedIn      = errors.New("no check-in recorded for today")
	ErrAlreadyCheckedOut = errors.New("already checked out today")
	ErrCheckInInProgress = errors.New("a check-in for today is already being processed")
	ErrInvalidWorkMode   = errors.New("work mode must be office, wfh or field")
	ErrInvalidStatus     = errors.New("invalid attendance status")
	ErrInvalidTimes      = errors.New("check-out must be after check-in")
)
