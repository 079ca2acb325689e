package leave

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hrms/internal/domain/auth"
	"hrms/internal/platform/metrics"
)

type Service struct {
	store    StoreAPI
	calendar CalendarSource
	notifier Notifier
	Metrics  *metrics.Collector
	Now      func() time.Time
}

func NewService(store StoreAPI, calendar CalendarSource, notifier Notifier) *Service {
	return &Service{store: store, calendar: calendar, notifier: notifier, Now: time.Now}
}

func (s *Service) ListTypes(ctx context.Context) ([]LeaveType, error) {
	return s.store.ListTypes(ctx)
}

func (s *Service) CreateType(ctx context.Context, lt LeaveType) (LeaveType, error) {
	lt.Code = strings.ToUpper(strings.TrimSpace(lt.Code))
	lt.Name = strings.TrimSpace(lt.Name)
	if lt.Code == "" || lt.Name == "" || lt.AnnualEntitlement < 0 {
		return LeaveType{}, ErrInvalidPolicy
	}
	id, err := s.store.CreateType(ctx, lt)
	if err != nil {
		return LeaveType{}, err
	}
	return s.store.GetType(ctx, id)
}

func (s *Service) ListPolicies(ctx context.Context) ([]Policy, error) {
	return s.store.ListPolicies(ctx)
}

func (s *Service) UpdatePolicy(ctx context.Context, p Policy) (Policy, error) {
	p.AccrualPeriod = strings.ToLower(strings.TrimSpace(p.AccrualPeriod))
	if p.AccrualPeriod == "" {
		p.AccrualPeriod = PeriodMonthly
	}
	if !ValidPeriod(p.AccrualPeriod) || p.AccrualRate < 0 || p.CarryOverLimit < 0 {
		return Policy{}, ErrInvalidPolicy
	}
	if _, err := s.store.GetType(ctx, p.LeaveTypeID); err != nil {
		return Policy{}, err
	}
	if err := s.store.UpsertPolicy(ctx, p); err != nil {
		return Policy{}, err
	}
	return s.store.PolicyForType(ctx, p.LeaveTypeID)
}

func (s *Service) Balances(ctx context.Context, employeeID int64) ([]Balance, error) {
	return s.store.ListBalances(ctx, employeeID)
}

// AdjustBalance applies a manual credit or debit and returns the balance
// before and after.
func (s *Service) AdjustBalance(ctx context.Context, employeeID, typeID int64, delta float64) (Balance, Balance, error) {
	if delta == 0 {
		return Balance{}, Balance{}, ErrInvalidPolicy
	}
	if _, err := s.store.GetType(ctx, typeID); err != nil {
		return Balance{}, Balance{}, err
	}
	before, err := s.store.GetBalance(ctx, employeeID, typeID)
	if err != nil {
		return Balance{}, Balance{}, err
	}
	after, err := s.store.AdjustBalance(ctx, employeeID, typeID, delta)
	return before, after, err
}

// Apply files a leave request for the employee. Days are counted over
// working days and reserved as pending on the balance.
func (s *Service) Apply(ctx context.Context, employeeID int64, in ApplyInput) (Request, error) {
	if in.EndDate.Before(in.StartDate) {
		return Request{}, ErrInvalidRange
	}
	lt, err := s.store.GetType(ctx, in.LeaveTypeID)
	if err != nil {
		return Request{}, err
	}
	cal, err := s.calendar.Calendar(ctx, in.StartDate, in.EndDate)
	if err != nil {
		return Request{}, err
	}
	days, err := CalculateRequestDays(cal, in.StartDate, in.EndDate, in.StartHalf, in.EndHalf)
	if err != nil {
		return Request{}, err
	}

	overlap, err := s.store.HasOverlap(ctx, employeeID, in.StartDate, in.EndDate)
	if err != nil {
		return Request{}, err
	}
	if overlap {
		return Request{}, ErrOverlap
	}

	policy, err := s.store.PolicyForType(ctx, lt.ID)
	if err != nil {
		return Request{}, err
	}
	if !policy.AllowNegative {
		balance, err := s.store.GetBalance(ctx, employeeID, lt.ID)
		if err != nil {
			return Request{}, err
		}
		if days > balance.Available() {
			return Request{}, ErrInsufficientBalance
		}
	}

	managerID, err := s.store.ManagerOf(ctx, employeeID)
	if err != nil {
		return Request{}, err
	}
	status := StatusPending
	if managerID == 0 {
		status = StatusPendingHR
	}

	id, err := s.store.CreateRequest(ctx, Request{
		EmployeeID:  employeeID,
		LeaveTypeID: lt.ID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		StartHalf:   in.StartHalf,
		EndHalf:     in.EndHalf,
		Days:        days,
		Reason:      strings.TrimSpace(in.Reason),
		Status:      status,
	}, !policy.AllowNegative)
	if err != nil {
		return Request{}, err
	}
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	s.Metrics.Event("leave_applied")

	body := fmt.Sprintf("%s requested %.1f day(s) of %s from %s to %s", req.EmployeeName, req.Days, lt.Code,
		req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"))
	if managerID > 0 {
		s.notifyEmployee(ctx, managerID, "leave_submitted", "Leave request awaiting approval", body)
	} else {
		s.notifyHR(ctx, "leave_submitted", "Leave request awaiting HR approval", body)
	}
	return req, nil
}

func (s *Service) GetRequest(ctx context.Context, id int64) (Request, error) {
	return s.store.GetRequest(ctx, id)
}

func (s *Service) ListRequests(ctx context.Context, filter RequestFilter, limit, offset int) ([]Request, int, error) {
	total, err := s.store.CountRequests(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.ListRequests(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CanView reports whether the user may read the request: its owner, the
// owner's manager, or HR.
func (s *Service) CanView(ctx context.Context, user auth.UserContext, req Request) (bool, error) {
	if auth.IsPrivileged(user.RoleName) || req.EmployeeID == user.EmployeeID {
		return true, nil
	}
	managerID, err := s.store.ManagerOf(ctx, req.EmployeeID)
	if err != nil {
		return false, err
	}
	return user.EmployeeID > 0 && managerID == user.EmployeeID, nil
}

// Approve advances a pending request. The employee's manager approves the
// first stage; a policy requiring HR moves it to pending_hr instead. HR can
// approve either stage. Nobody approves their own request.
func (s *Service) Approve(ctx context.Context, user auth.UserContext, id int64, note string) (Request, Request, error) {
	before, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, Request{}, err
	}
	if !before.IsPending() {
		return Request{}, Request{}, ErrInvalidState
	}
	if before.EmployeeID == user.EmployeeID {
		return Request{}, Request{}, ErrForbidden
	}

	isHR := auth.IsPrivileged(user.RoleName)
	next := StatusApproved
	switch {
	case before.Status == StatusPendingHR:
		if !isHR {
			return Request{}, Request{}, ErrHRApprovalRequired
		}
	case isHR:
	default:
		managerID, err := s.store.ManagerOf(ctx, before.EmployeeID)
		if err != nil {
			return Request{}, Request{}, err
		}
		if user.EmployeeID == 0 || managerID != user.EmployeeID {
			return Request{}, Request{}, ErrForbidden
		}
		policy, err := s.store.PolicyForType(ctx, before.LeaveTypeID)
		if err != nil {
			return Request{}, Request{}, err
		}
		if policy.RequiresHRApproval {
			next = StatusPendingHR
		}
	}

	move := MoveConsume
	if next == StatusPendingHR {
		move = MoveNone
	}
	if err := s.store.Transition(ctx, id, []string{before.Status}, next, user.UserID, strings.TrimSpace(note), move); err != nil {
		return Request{}, Request{}, err
	}
	after, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, Request{}, err
	}

	if next == StatusPendingHR {
		s.notifyHR(ctx, "leave_submitted", "Leave request awaiting HR approval",
			fmt.Sprintf("%s's leave from %s was approved by their manager", after.EmployeeName, after.StartDate.Format("2006-01-02")))
	} else {
		s.Metrics.Event("leave_approved")
		s.notifyEmployee(ctx, after.EmployeeID, "leave_approved", "Leave approved",
			fmt.Sprintf("Your leave from %s to %s was approved", after.StartDate.Format("2006-01-02"), after.EndDate.Format("2006-01-02")))
	}
	return before, after, nil
}

func (s *Service) Reject(ctx context.Context, user auth.UserContext, id int64, note string) (Request, Request, error) {
	before, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, Request{}, err
	}
	if !before.IsPending() {
		return Request{}, Request{}, ErrInvalidState
	}
	if before.EmployeeID == user.EmployeeID {
		return Request{}, Request{}, ErrForbidden
	}
	if !auth.IsPrivileged(user.RoleName) {
		if before.Status == StatusPendingHR {
			return Request{}, Request{}, ErrHRApprovalRequired
		}
		managerID, err := s.store.ManagerOf(ctx, before.EmployeeID)
		if err != nil {
			return Request{}, Request{}, err
		}
		if user.EmployeeID == 0 || managerID != user.EmployeeID {
			return Request{}, Request{}, ErrForbidden
		}
	}

	if err := s.store.Transition(ctx, id, []string{before.Status}, StatusRejected, user.UserID, strings.TrimSpace(note), MoveRelease); err != nil {
		return Request{}, Request{}, err
	}
	after, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, Request{}, err
	}
	s.Metrics.Event("leave_rejected")
	s.notifyEmployee(ctx, after.EmployeeID, "leave_rejected", "Leave rejected",
		fmt.Sprintf("Your leave from %s to %s was rejected", after.StartDate.Format("2006-01-02"), after.EndDate.Format("2006-01-02")))
	return before, after, nil
}

// Cancel withdraws a request that is still awaiting a decision.
func (s *Service) Cancel(ctx context.Context, user auth.UserContext, id int64) (Request, Request, error) {
	before, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, Request{}, err
	}
	if before.EmployeeID != user.EmployeeID && !auth.IsPrivileged(user.RoleName) {
		return Request{}, Request{}, ErrForbidden
	}
	if !before.IsPending() {
		return Request{}, Request{}, ErrInvalidState
	}
	if err := s.store.Transition(ctx, id, []string{StatusPending, StatusPendingHR}, StatusCancelled, user.UserID, "", MoveRelease); err != nil {
		return Request{}, Request{}, err
	}
	after, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, Request{}, err
	}
	return before, after, nil
}

// Calendar lists approved and pending requests overlapping [from, to].
func (s *Service) Calendar(ctx context.Context, filter RequestFilter, from, to time.Time) ([]Request, error) {
	filter.From = from
	filter.To = to
	items, err := s.store.ListRequests(ctx, filter, 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Request, 0, len(items))
	for _, item := range items {
		if item.Status == StatusApproved || item.IsPending() {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *Service) BalanceReport(ctx context.Context) ([]BalanceReportRow, error) {
	return s.store.BalanceReport(ctx)
}

func (s *Service) UsageReport(ctx context.Context, from, to time.Time) ([]UsageReportRow, error) {
	return s.store.UsageReport(ctx, from, to)
}

// RunAccruals applies due accruals as of now.
func (s *Service) RunAccruals(ctx context.Context) (AccrualSummary, error) {
	return ApplyAccruals(ctx, s.store, s.Now().UTC())
}

func (s *Service) notifyEmployee(ctx context.Context, employeeID int64, ntype, title, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyEmployee(ctx, employeeID, ntype, title, body); err != nil {
		slog.Warn("leave notification failed", "employeeId", employeeID, "err", err)
	}
}

func (s *Service) notifyHR(ctx context.Context, ntype, title, body string) {
	if s.notifier == nil {
		return
	}
	ids, err := s.store.HRUserIDs(ctx)
	if err != nil {
		slog.Warn("leave hr lookup failed", "err", err)
		return
	}
	for _, id := range ids {
		if err := s.notifier.Create(ctx, id, ntype, title, body); err != nil {
			slog.Warn("leave notification failed", "userId", id, "err", err)
		}
	}
}
