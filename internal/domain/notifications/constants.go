package notifications

const (
	TypeLeaveSubmitted        = "leave_submitted"
	TypeLeaveApproved         = "leave_approved"
	TypeLeaveRejected         = "leave_rejected"
	TypeLeaveCancelled        = "leave_cancelled"
	TypePayslipPublished      = "payslip_published"
	TypeTimesheetSubmitted    = "timesheet_submitted"
	TypeTimesheetReviewed     = "timesheet_reviewed"
	TypeComplianceReminder    = "compliance_reminder"
	TypeAnnouncementPublished = "announcement_published"
	TypeAssetAllocated        = "asset_allocated"
	TypeTicketUpdated         = "ticket_updated"
	TypePasswordReset         = "password_reset"
)
