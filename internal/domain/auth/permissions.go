package auth

const (
	RoleEmployee    = "employee"
	RoleManager     = "manager"
	RoleHR          = "hr"
	RoleSystemAdmin = "system_admin"
)

const (
	PermEmployeesRead        = "employees.read"
	PermEmployeesWrite       = "employees.write"
	PermMasterDataRead       = "masterdata.read"
	PermMasterDataWrite      = "masterdata.write"
	PermHolidaysWrite        = "holidays.write"
	PermAttendanceSelf       = "attendance.self"
	PermAttendanceRead       = "attendance.read"
	PermAttendanceManage     = "attendance.manage"
	PermLeaveRead            = "leave.read"
	PermLeaveWrite           = "leave.write"
	PermLeaveApprove         = "leave.approve"
	PermLeaveManage          = "leave.manage"
	PermTimesheetWrite       = "timesheets.write"
	PermTimesheetApprove     = "timesheets.approve"
	PermTimesheetLock        = "timesheets.lock"
	PermWorkUpdatesWrite     = "workupdates.write"
	PermWorkUpdatesRead      = "workupdates.read"
	PermComplianceRead       = "compliance.read"
	PermAssetsRead           = "assets.read"
	PermAssetsManage         = "assets.manage"
	PermAnnouncementsRead    = "announcements.read"
	PermAnnouncementsManage  = "announcements.manage"
	PermPayrollRead          = "payroll.read"
	PermPayrollManage        = "payroll.manage"
	PermPayrollLock          = "payroll.lock"
	PermTicketsWrite         = "tickets.write"
	PermTicketsManage        = "tickets.manage"
	PermReportsRead          = "reports.read"
	PermReportsManage        = "reports.manage"
	PermAuditRead            = "audit.read"
	PermUsersManage          = "users.manage"
	PermSystemAdmin          = "admin.system"
	PermNotificationSettings = "notifications.settings"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermMasterDataRead,
	PermMasterDataWrite,
	PermHolidaysWrite,
	PermAttendanceSelf,
	PermAttendanceRead,
	PermAttendanceManage,
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveApprove,
	PermLeaveManage,
	PermTimesheetWrite,
	PermTimesheetApprove,
	PermTimesheetLock,
	PermWorkUpdatesWrite,
	PermWorkUpdatesRead,
	PermComplianceRead,
	PermAssetsRead,
	PermAssetsManage,
	PermAnnouncementsRead,
	PermAnnouncementsManage,
	PermPayrollRead,
	PermPayrollManage,
	PermPayrollLock,
	PermTicketsWrite,
	PermTicketsManage,
	PermReportsRead,
	PermReportsManage,
	PermAuditRead,
	PermUsersManage,
	PermSystemAdmin,
	PermNotificationSettings,
}

var employeeBase = []string{
	PermEmployeesRead,
	PermMasterDataRead,
	PermAttendanceSelf,
	PermLeaveRead,
	PermLeaveWrite,
	PermTimesheetWrite,
	PermWorkUpdatesWrite,
	PermAssetsRead,
	PermAnnouncementsRead,
	PermPayrollRead,
	PermTicketsWrite,
	PermReportsRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: employeeBase,
	RoleManager: append(append([]string{}, employeeBase...),
		PermAttendanceRead,
		PermLeaveApprove,
		PermTimesheetApprove,
		PermWorkUpdatesRead,
		PermComplianceRead,
	),
	RoleHR: append(append([]string{}, employeeBase...),
		PermEmployeesWrite,
		PermMasterDataWrite,
		PermHolidaysWrite,
		PermAttendanceRead,
		PermAttendanceManage,
		PermLeaveApprove,
		PermLeaveManage,
		PermTimesheetApprove,
		PermTimesheetLock,
		PermWorkUpdatesRead,
		PermComplianceRead,
		PermAssetsManage,
		PermAnnouncementsManage,
		PermPayrollManage,
		PermPayrollLock,
		PermTicketsManage,
		PermReportsManage,
		PermAuditRead,
		PermUsersManage,
		PermNotificationSettings,
	),
	RoleSystemAdmin: {
		PermSystemAdmin,
		PermUsersManage,
		PermAuditRead,
		PermMasterDataRead,
		PermAnnouncementsRead,
		PermTicketsWrite,
		PermTicketsManage,
		PermNotificationSettings,
	},
}

// IsPrivileged reports whether a role sees organisation-wide data.
func IsPrivileged(role string) bool {
	return role == RoleHR || role == RoleSystemAdmin
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
