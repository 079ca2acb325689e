package legacy

import "time"

// Tables of the previous MySQL-backed HRMS. Only the columns the import
// reads are mapped.

type Employee struct {
	ID         uint       `gorm:"column:id;primaryKey"`
	EmpCode    string     `gorm:"column:emp_code"`
	FirstName  string     `gorm:"column:first_name"`
	LastName   string     `gorm:"column:last_name"`
	Email      string     `gorm:"column:email"`
	Phone      string     `gorm:"column:phone"`
	Department string     `gorm:"column:department"`
	JoinedOn   *time.Time `gorm:"column:joined_on"`
	Status     string     `gorm:"column:status"`
}

func (Employee) TableName() string { return "employees" }

type Leave struct {
	ID         uint      `gorm:"column:id;primaryKey"`
	EmployeeID uint      `gorm:"column:employee_id"`
	LeaveType  string    `gorm:"column:leave_type"`
	FromDate   time.Time `gorm:"column:from_date"`
	ToDate     time.Time `gorm:"column:to_date"`
	Days       float64   `gorm:"column:days"`
	Reason     string    `gorm:"column:reason"`
	Status     string    `gorm:"column:status"`
}

func (Leave) TableName() string { return "leaves" }

type Attendance struct {
	ID         uint       `gorm:"column:id;primaryKey"`
	EmployeeID uint       `gorm:"column:employee_id"`
	Date       time.Time  `gorm:"column:date"`
	CheckIn    *time.Time `gorm:"column:check_in"`
	CheckOut   *time.Time `gorm:"column:check_out"`
	Mode       string     `gorm:"column:mode"`
	Status     string     `gorm:"column:status"`
}

func (Attendance) TableName() string { return "attendance" }

type Holiday struct {
	ID       uint      `gorm:"column:id;primaryKey"`
	Date     time.Time `gorm:"column:date"`
	Name     string    `gorm:"column:name"`
	Optional bool      `gorm:"column:optional"`
}

func (Holiday) TableName() string { return "holidays" }
