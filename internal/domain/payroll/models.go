package payroll

import "time"

const (
	RunStatusDraft     = "draft"
	RunStatusProcessed = "processed"
	RunStatusLocked    = "locked"

	WarningMissingBank   = "missing_bank_account"
	WarningMissingSalary = "missing_salary"
	WarningNegativeNet   = "negative_net"
	WarningNetVariance   = "net_variance"

	DefaultCurrency = "INR"
)

type Structure struct {
	EmployeeID   int64     `json:"employeeId"`
	EmployeeName string    `json:"employeeName,omitempty"`
	Base         float64   `json:"base"`
	Allowances   float64   `json:"allowances"`
	Deductions   float64   `json:"deductions"`
	Currency     string    `json:"currency"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Run struct {
	ID          int64      `json:"id"`
	Year        int        `json:"year"`
	Month       int        `json:"month"`
	Status      string     `json:"status"`
	WorkingDays int        `json:"workingDays"`
	GeneratedAt *time.Time `json:"generatedAt,omitempty"`
	LockedAt    *time.Time `json:"lockedAt,omitempty"`
	LockedBy    *int64     `json:"lockedBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Period returns the first and last calendar day of the run's month.
func (r Run) Period() (time.Time, time.Time) {
	return MonthBounds(r.Year, r.Month)
}

func MonthBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

type Slip struct {
	ID              int64      `json:"id"`
	RunID           int64      `json:"runId"`
	Year            int        `json:"year"`
	Month           int        `json:"month"`
	EmployeeID      int64      `json:"employeeId"`
	EmployeeName    string     `json:"employeeName"`
	EmployeeCode    string     `json:"employeeCode"`
	Base            float64    `json:"base"`
	Allowances      float64    `json:"allowances"`
	Bonus           float64    `json:"bonus"`
	Deductions      float64    `json:"deductions"`
	LOPDays         float64    `json:"lopDays"`
	LOPAmount       float64    `json:"lopAmount"`
	Gross           float64    `json:"gross"`
	TotalDeductions float64    `json:"totalDeductions"`
	Net             float64    `json:"net"`
	Currency        string     `json:"currency"`
	Warnings        []string   `json:"warnings"`
	FilePath        string     `json:"-"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type Adjustment struct {
	ID         int64     `json:"id"`
	EmployeeID int64     `json:"employeeId"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	Label      string    `json:"label"`
	Amount     float64   `json:"amount"`
	CreatedBy  *int64    `json:"createdBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type RunSummary struct {
	Run             Run            `json:"run"`
	EmployeeCount   int            `json:"employeeCount"`
	TotalGross      float64        `json:"totalGross"`
	TotalDeductions float64        `json:"totalDeductions"`
	TotalLOP        float64        `json:"totalLop"`
	TotalNet        float64        `json:"totalNet"`
	Warnings        map[string]int `json:"warnings"`
}

// PayInput is everything the generator needs for one employee.
type PayInput struct {
	EmployeeID  int64
	Structure   Structure
	HasBank     bool
	Adjustments []float64
	Unpaid      []LeaveWindow
	PreviousNet float64
}

type LeaveWindow struct {
	StartDate time.Time
	EndDate   time.Time
	StartHalf bool
	EndHalf   bool
}
