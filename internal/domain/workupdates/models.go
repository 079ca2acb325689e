package workupdates

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("work update not found")
	ErrUpdateClosed = errors.New("work updates can only be changed on the same day")
	ErrFutureDate   = errors.New("work update date cannot be in the future")
	ErrEmptySummary = errors.New("summary is required")
)

type Update struct {
	ID              int64     `json:"id"`
	EmployeeID      int64     `json:"employeeId"`
	EmployeeName    string    `json:"employeeName,omitempty"`
	WorkDate        time.Time `json:"date"`
	Summary         string    `json:"summary"`
	Blockers        string    `json:"blockers,omitempty"`
	PlannedTomorrow string    `json:"plannedTomorrow,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Input struct {
	WorkDate        time.Time
	Summary         string
	Blockers        string
	PlannedTomorrow string
}

// Filter narrows listings. TeamOf restricts to the manager's direct reports.
type Filter struct {
	EmployeeID int64
	TeamOf     int64
	From       time.Time
	To         time.Time
}
