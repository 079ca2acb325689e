package masterdata

import "errors"

var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicate        = errors.New("a record with the same name or code already exists")
	ErrInUse            = errors.New("record is still referenced")
	ErrInvalidReference = errors.New("referenced record does not exist")
	ErrInvalidDates     = errors.New("end date must be on or after start date")
	ErrInvalidStatus    = errors.New("invalid project status")
	ErrInvalidName      = errors.New("name is required")
	ErrInvalidPercent   = errors.New("allocation percent must be between 1 and 100")
)
