package masterdata

import "time"

const (
	ProjectActive    = "active"
	ProjectOnHold    = "on_hold"
	ProjectCompleted = "completed"
)

type Department struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code,omitempty"`
	EmployeeCount int       `json:"employeeCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Designation struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	DepartmentID *int64    `json:"departmentId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Location struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Project struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Assignment struct {
	ID                int64      `json:"id"`
	ProjectID         int64      `json:"projectId"`
	EmployeeID        int64      `json:"employeeId"`
	EmployeeName      string     `json:"employeeName"`
	Role              string     `json:"role,omitempty"`
	AllocationPercent int        `json:"allocationPercent"`
	StartDate         *time.Time `json:"startDate,omitempty"`
	EndDate           *time.Time `json:"endDate,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func ValidProjectStatus(status string) bool {
	switch status {
	case ProjectActive, ProjectOnHold, ProjectCompleted:
		return true
	}
	return false
}
