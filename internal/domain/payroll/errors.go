package payroll

import "errors"

var (
	ErrRunNotFound     = errors.New("payroll run not found")
	ErrSlipNotFound    = errors.New("payslip not found")
	ErrRunLocked       = errors.New("payroll run is locked")
	ErrInvalidState    = errors.New("payroll run must be processed before lock")
	ErrInvalidPeriod   = errors.New("year and month are invalid")
	ErrInvalidAmount   = errors.New("salary amounts must not be negative")
	ErrUnknownEmployee = errors.New("employee not found")
	ErrForbidden       = errors.New("not allowed to view this payslip")
	ErrNoEmployees     = errors.New("no active employees to pay")
)
