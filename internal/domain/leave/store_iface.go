package leave

import (
	"context"
	"time"

	"hrms/internal/domain/holidays"
)

// Move describes how a status transition shifts the balance columns.
type Move int

const (
	MoveNone Move = iota
	MoveConsume
	MoveRelease
)

type StoreAPI interface {
	AccrualStore

	ListTypes(ctx context.Context) ([]LeaveType, error)
	GetType(ctx context.Context, typeID int64) (LeaveType, error)
	CreateType(ctx context.Context, lt LeaveType) (int64, error)
	ListPolicies(ctx context.Context) ([]Policy, error)
	PolicyForType(ctx context.Context, typeID int64) (Policy, error)
	UpsertPolicy(ctx context.Context, policy Policy) error

	ListBalances(ctx context.Context, employeeID int64) ([]Balance, error)
	GetBalance(ctx context.Context, employeeID, typeID int64) (Balance, error)
	AdjustBalance(ctx context.Context, employeeID, typeID int64, delta float64) (Balance, error)

	GetRequest(ctx context.Context, id int64) (Request, error)
	CountRequests(ctx context.Context, filter RequestFilter) (int, error)
	ListRequests(ctx context.Context, filter RequestFilter, limit, offset int) ([]Request, error)
	HasOverlap(ctx context.Context, employeeID int64, start, end time.Time) (bool, error)
	// CreateRequest inserts the request and reserves its days as pending. It
	// returns ErrOverlap, or ErrInsufficientBalance when enforceBalance is set
	// and the days exceed what is available at insert time.
	CreateRequest(ctx context.Context, req Request, enforceBalance bool) (int64, error)
	// Transition moves a request from one of the from statuses to to. It
	// returns ErrInvalidState when the stored status does not match.
	Transition(ctx context.Context, id int64, from []string, to string, decidedBy int64, note string, move Move) error

	ManagerOf(ctx context.Context, employeeID int64) (int64, error)
	HRUserIDs(ctx context.Context) ([]int64, error)

	BalanceReport(ctx context.Context) ([]BalanceReportRow, error)
	UsageReport(ctx context.Context, from, to time.Time) ([]UsageReportRow, error)
}

type CalendarSource interface {
	Calendar(ctx context.Context, from, to time.Time) (holidays.Calendar, error)
}

type Notifier interface {
	Create(ctx context.Context, userID int64, ntype, title, body string) error
	NotifyEmployee(ctx context.Context, employeeID int64, ntype, title, body string) error
}
