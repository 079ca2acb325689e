package employees

import "time"

const (
	StatusActive     = "active"
	StatusOnLeave    = "on_leave"
	StatusTerminated = "terminated"
)

type Employee struct {
	ID               int64      `json:"id"`
	EmployeeCode     string     `json:"employeeCode"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	DepartmentID     *int64     `json:"departmentId,omitempty"`
	DepartmentName   string     `json:"departmentName,omitempty"`
	DesignationID    *int64     `json:"designationId,omitempty"`
	DesignationTitle string     `json:"designationTitle,omitempty"`
	LocationID       *int64     `json:"locationId,omitempty"`
	ManagerID        *int64     `json:"managerId,omitempty"`
	ManagerName      string     `json:"managerName,omitempty"`
	DateOfJoining    *time.Time `json:"dateOfJoining,omitempty"`
	Status           string     `json:"status"`
	Salary           *float64   `json:"salary,omitempty"`
	BankAccount      string     `json:"bankAccount,omitempty"`
	TerminatedAt     *time.Time `json:"terminatedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// Filter narrows employee listings. TeamOf restricts to the manager's
// direct reports plus the manager.
type Filter struct {
	ID           int64
	DepartmentID int64
	Status       string
	Query        string
	TeamOf       int64
}

func ValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusOnLeave, StatusTerminated:
		return true
	}
	return false
}
