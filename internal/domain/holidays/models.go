package holidays

import (
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("holiday not found")
	ErrDuplicate   = errors.New("a holiday with this date and name already exists")
	ErrInvalidName = errors.New("holiday name is required")
	ErrInvalidDate = errors.New("holiday date is required")
)

type Holiday struct {
	ID        int64     `json:"id"`
	Date      time.Time `json:"date"`
	Name      string    `json:"name"`
	Optional  bool      `json:"optional"`
	CreatedAt time.Time `json:"createdAt"`
}
