package timesheets

import "time"

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusLocked    = "locked"
)

const MaxDailyHours = 24

type Entry struct {
	ID           int64      `json:"id"`
	EmployeeID   int64      `json:"employeeId"`
	EmployeeName string     `json:"employeeName,omitempty"`
	WorkDate     time.Time  `json:"date"`
	ProjectID    *int64     `json:"projectId,omitempty"`
	ProjectName  string     `json:"projectName,omitempty"`
	Hours        float64    `json:"hours"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	SubmittedAt  *time.Time `json:"submittedAt,omitempty"`
	ReviewedBy   *int64     `json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
	ReviewNote   string     `json:"reviewNote,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Editable reports whether the owner may still change the entry.
func (e Entry) Editable() bool {
	return e.Status == StatusDraft || e.Status == StatusRejected
}

type EntryInput struct {
	WorkDate    time.Time
	ProjectID   *int64
	Hours       float64
	Description string
}

// Filter narrows entry listings. TeamOf restricts to the manager's direct
// reports. Zero dates are unbounded.
type Filter struct {
	EmployeeID int64
	TeamOf     int64
	Status     string
	From       time.Time
	To         time.Time
}

// WeekOf returns the Monday starting the week containing day.
func WeekOf(day time.Time) time.Time {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
