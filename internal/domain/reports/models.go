package reports

import "hrms/internal/domain/attendance"

type EmployeeDashboard struct {
	EmployeeID          int64   `json:"employeeId"`
	TodayStatus         string  `json:"todayStatus"`
	LeaveAvailable      float64 `json:"leaveAvailable"`
	PendingLeave        int     `json:"pendingLeave"`
	AssetsHeld          int     `json:"assetsHeld"`
	Payslips            int     `json:"payslips"`
	OpenTickets         int     `json:"openTickets"`
	UnreadNotifications int     `json:"unreadNotifications"`
	DraftTimesheets     int     `json:"draftTimesheets"`
}

type ManagerDashboard struct {
	TeamSize          int `json:"teamSize"`
	CheckedInToday    int `json:"checkedInToday"`
	OnLeaveToday      int `json:"onLeaveToday"`
	PendingLeave      int `json:"pendingLeave"`
	PendingTimesheets int `json:"pendingTimesheets"`
	MissingUpdates    int `json:"missingUpdates"`
}

type HRDashboard struct {
	Headcount           int `json:"headcount"`
	OnLeave             int `json:"onLeave"`
	JoinersThisMonth    int `json:"joinersThisMonth"`
	PendingLeave        int `json:"pendingLeave"`
	PendingHRLeave      int `json:"pendingHrLeave"`
	UnlockedPayroll     int `json:"unlockedPayrollRuns"`
	OpenTickets         int `json:"openTickets"`
	AllocatedAssets     int `json:"allocatedAssets"`
	CheckedInToday      int `json:"checkedInToday"`
	ActiveAnnouncements int `json:"activeAnnouncements"`
}

type HeadcountRow struct {
	DepartmentID   *int64 `json:"departmentId,omitempty"`
	DepartmentName string `json:"departmentName"`
	Active         int    `json:"active"`
	OnLeave        int    `json:"onLeave"`
	Terminated     int    `json:"terminated"`
}

type Headcount struct {
	Total       int            `json:"total"`
	Active      int            `json:"active"`
	OnLeave     int            `json:"onLeave"`
	Terminated  int            `json:"terminated"`
	Departments []HeadcountRow `json:"departments"`
}

type Person struct {
	EmployeeID   int64
	EmployeeCode string
	Name         string
	Department   string
}

type AttendanceRow struct {
	EmployeeCode string `json:"employeeCode"`
	EmployeeName string `json:"employeeName"`
	Department   string `json:"department"`
	attendance.Summary
}
