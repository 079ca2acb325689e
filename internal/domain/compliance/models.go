package compliance

import (
	"errors"
	"time"
)

var ErrRangeTooLarge = errors.New("trend range is limited to 92 days")

const MaxTrendDays = 92

// EmployeeStatus is one employee's standing for a single day.
type EmployeeStatus struct {
	EmployeeID     int64
	EmployeeName   string
	DepartmentID   *int64
	DepartmentName string
	OnLeave        bool
	Compliant      bool
}

type DepartmentRate struct {
	DepartmentID   *int64  `json:"departmentId,omitempty"`
	DepartmentName string  `json:"departmentName"`
	Total          int     `json:"total"`
	Compliant      int     `json:"compliant"`
	Rate           float64 `json:"rate"`
}

type Missing struct {
	EmployeeID     int64  `json:"employeeId"`
	EmployeeName   string `json:"employeeName"`
	DepartmentName string `json:"departmentName,omitempty"`
}

type Dashboard struct {
	Date         string           `json:"date"`
	Total        int              `json:"total"`
	Compliant    int              `json:"compliant"`
	NonCompliant int              `json:"nonCompliant"`
	OnLeave      int              `json:"onLeave"`
	Rate         float64          `json:"rate"`
	Departments  []DepartmentRate `json:"departments"`
	Missing      []Missing        `json:"missing"`
}

type DayRate struct {
	Date      string  `json:"date"`
	Total     int     `json:"total"`
	Compliant int     `json:"compliant"`
	Rate      float64 `json:"rate"`
}

type ReminderResult struct {
	Date     string `json:"date"`
	Notified int    `json:"notified"`
	Skipped  bool   `json:"skipped,omitempty"`
}

func formatDay(day time.Time) string {
	return day.Format("2006-01-02")
}
