package leave

import "time"

const (
	StatusPending   = "pending"
	StatusPendingHR = "pending_hr"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

type LeaveType struct {
	ID                int64     `json:"id"`
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	IsPaid            bool      `json:"isPaid"`
	RequiresDoc       bool      `json:"requiresDoc"`
	AnnualEntitlement float64   `json:"annualEntitlement"`
	CreatedAt         time.Time `json:"createdAt"`
}

type Policy struct {
	ID                 int64      `json:"id"`
	LeaveTypeID        int64      `json:"leaveTypeId"`
	LeaveTypeCode      string     `json:"leaveTypeCode,omitempty"`
	AccrualRate        float64    `json:"accrualRate"`
	AccrualPeriod      string     `json:"accrualPeriod"`
	CarryOverLimit     float64    `json:"carryOverLimit"`
	AllowNegative      bool       `json:"allowNegative"`
	RequiresHRApproval bool       `json:"requiresHrApproval"`
	LastAccruedOn      *time.Time `json:"lastAccruedOn,omitempty"`
}

type Balance struct {
	EmployeeID    int64     `json:"employeeId"`
	LeaveTypeID   int64     `json:"leaveTypeId"`
	LeaveTypeCode string    `json:"leaveTypeCode"`
	LeaveTypeName string    `json:"leaveTypeName"`
	Balance       float64   `json:"balance"`
	Pending       float64   `json:"pending"`
	Used          float64   `json:"used"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Available is the balance not already reserved by pending requests.
func (b Balance) Available() float64 {
	return b.Balance - b.Pending
}

type Request struct {
	ID            int64      `json:"id"`
	EmployeeID    int64      `json:"employeeId"`
	EmployeeName  string     `json:"employeeName,omitempty"`
	LeaveTypeID   int64      `json:"leaveTypeId"`
	LeaveTypeCode string     `json:"leaveTypeCode,omitempty"`
	StartDate     time.Time  `json:"startDate"`
	EndDate       time.Time  `json:"endDate"`
	StartHalf     bool       `json:"startHalf"`
	EndHalf       bool       `json:"endHalf"`
	Days          float64    `json:"days"`
	Reason        string     `json:"reason,omitempty"`
	Status        string     `json:"status"`
	DecidedBy     *int64     `json:"decidedBy,omitempty"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty"`
	DecisionNote  string     `json:"decisionNote,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (r Request) IsPending() bool {
	return r.Status == StatusPending || r.Status == StatusPendingHR
}

// RequestFilter narrows request listings. TeamOf restricts to the manager's
// direct reports plus the manager. Zero dates are unbounded.
type RequestFilter struct {
	EmployeeID int64
	TeamOf     int64
	Status     string
	From       time.Time
	To         time.Time
}

type ApplyInput struct {
	LeaveTypeID int64
	StartDate   time.Time
	EndDate     time.Time
	StartHalf   bool
	EndHalf     bool
	Reason      string
}

type BalanceReportRow struct {
	EmployeeID    int64   `json:"employeeId"`
	EmployeeName  string  `json:"employeeName"`
	LeaveTypeCode string  `json:"leaveTypeCode"`
	Balance       float64 `json:"balance"`
	Pending       float64 `json:"pending"`
	Used          float64 `json:"used"`
}

type UsageReportRow struct {
	LeaveTypeCode string  `json:"leaveTypeCode"`
	LeaveTypeName string  `json:"leaveTypeName"`
	Requests      int     `json:"requests"`
	Days          float64 `json:"days"`
}

func ValidPeriod(period string) bool {
	switch period {
	case PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	default:
		return false
	}
}
