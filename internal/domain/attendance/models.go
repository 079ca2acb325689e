package attendance

import "time"

const (
	ModeOffice = "office"
	ModeWFH    = "wfh"
	ModeField  = "field"
)

const (
	StatusPresent = "present"
	StatusLate    = "late"
	StatusHalfDay = "half_day"
	StatusAbsent  = "absent"
	StatusOnLeave = "on_leave"
)

const (
	SourceSelf   = "self"
	SourceManual = "manual"
)

type Record struct {
	ID           int64      `json:"id"`
	EmployeeID   int64      `json:"employeeId"`
	EmployeeName string     `json:"employeeName,omitempty"`
	WorkDate     time.Time  `json:"workDate"`
	CheckInAt    *time.Time `json:"checkInAt,omitempty"`
	CheckOutAt   *time.Time `json:"checkOutAt,omitempty"`
	WorkMode     string     `json:"workMode"`
	Location     string     `json:"location,omitempty"`
	Note         string     `json:"note,omitempty"`
	Status       string     `json:"status"`
	WorkedHours  float64    `json:"workedHours"`
	Source       string     `json:"source"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type Filter struct {
	EmployeeID int64
	TeamOf     int64
	From       time.Time
	To         time.Time
}

type CheckInInput struct {
	WorkMode string
	Location string
	Note     string
}

type MarkInput struct {
	EmployeeID int64
	Date       time.Time
	Status     string
	WorkMode   string
	CheckInAt  *time.Time
	CheckOutAt *time.Time
	Note       string
}

// Summary counts a month of attendance for one employee. Weekends and
// holidays are not counted; days after today are not counted as absent.
type Summary struct {
	EmployeeID  int64  `json:"employeeId"`
	Month       string `json:"month"`
	WorkingDays int    `json:"workingDays"`
	Present     int    `json:"present"`
	Late        int    `json:"late"`
	HalfDay     int    `json:"halfDay"`
	Absent      int    `json:"absent"`
	OnLeave     int    `json:"onLeave"`
	WFH         int    `json:"wfh"`
	Holidays    int    `json:"holidays"`

	// ShortDays are present or late days checked out below FullDayHours.
	ShortDays     int     `json:"shortDays"`
	OvertimeHours float64 `json:"overtimeHours"`
}

type Today struct {
	Date       time.Time `json:"date"`
	Record     *Record   `json:"record,omitempty"`
	CheckedIn  bool      `json:"checkedIn"`
	CheckedOut bool      `json:"checkedOut"`
	IsHoliday  bool      `json:"isHoliday"`
	IsWeekend  bool      `json:"isWeekend"`
}

// LeaveSpan is an approved leave overlapping a queried range.
type LeaveSpan struct {
	Start time.Time
	End   time.Time
}

func ValidWorkMode(mode string) bool {
	switch mode {
	case ModeOffice, ModeWFH, ModeField:
		return true
	}
	return false
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPresent, StatusLate, StatusHalfDay, StatusAbsent, StatusOnLeave:
		return true
	}
	return false
}
