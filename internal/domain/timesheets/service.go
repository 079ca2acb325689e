package timesheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hrms/internal/domain/auth"
)

type Service struct {
	store    StoreAPI
	notifier Notifier
}

func NewService(store StoreAPI, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Entry, int, error) {
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) checkHours(ctx context.Context, employeeID int64, day time.Time, hours float64, excludeID int64) error {
	if hours <= 0 || hours > MaxDailyHours {
		return ErrInvalidHours
	}
	logged, err := s.store.DailyHours(ctx, employeeID, day, excludeID)
	if err != nil {
		return err
	}
	if logged+hours > MaxDailyHours {
		return ErrDailyLimit
	}
	return nil
}

// checkWeek rejects writes into a week that payroll has already locked.
func (s *Service) checkWeek(ctx context.Context, employeeID int64, day time.Time) error {
	from := WeekOf(day)
	locked, err := s.store.HasLocked(ctx, employeeID, from, from.AddDate(0, 0, 6))
	if err != nil {
		return err
	}
	if locked {
		return ErrNotEditable
	}
	return nil
}

func (s *Service) Create(ctx context.Context, employeeID int64, in EntryInput) (Entry, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return Entry{}, ErrEmptyDescription
	}
	if err := s.checkWeek(ctx, employeeID, in.WorkDate); err != nil {
		return Entry{}, err
	}
	if err := s.checkHours(ctx, employeeID, in.WorkDate, in.Hours, 0); err != nil {
		return Entry{}, err
	}
	id, err := s.store.Create(ctx, Entry{
		EmployeeID:  employeeID,
		WorkDate:    in.WorkDate,
		ProjectID:   in.ProjectID,
		Hours:       in.Hours,
		Description: in.Description,
		Status:      StatusDraft,
	})
	if err != nil {
		return Entry{}, err
	}
	return s.store.Get(ctx, id)
}

// Update edits a draft or rejected entry owned by the employee. Editing a
// rejected entry returns it to draft.
func (s *Service) Update(ctx context.Context, employeeID, id int64, in EntryInput) (Entry, Entry, error) {
	before, err := s.owned(ctx, employeeID, id)
	if err != nil {
		return Entry{}, Entry{}, err
	}
	if !before.Editable() {
		return Entry{}, Entry{}, ErrNotEditable
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return Entry{}, Entry{}, ErrEmptyDescription
	}
	if err := s.checkWeek(ctx, employeeID, in.WorkDate); err != nil {
		return Entry{}, Entry{}, err
	}
	if err := s.checkHours(ctx, employeeID, in.WorkDate, in.Hours, id); err != nil {
		return Entry{}, Entry{}, err
	}

	updated := before
	updated.WorkDate = in.WorkDate
	updated.ProjectID = in.ProjectID
	updated.Hours = in.Hours
	updated.Description = in.Description
	updated.Status = StatusDraft
	if err := s.store.Update(ctx, updated); err != nil {
		return Entry{}, Entry{}, err
	}
	after, err := s.store.Get(ctx, id)
	return before, after, err
}

func (s *Service) Delete(ctx context.Context, employeeID, id int64) (Entry, error) {
	entry, err := s.owned(ctx, employeeID, id)
	if err != nil {
		return Entry{}, err
	}
	if !entry.Editable() {
		return Entry{}, ErrNotEditable
	}
	return entry, s.store.Delete(ctx, id)
}

func (s *Service) owned(ctx context.Context, employeeID, id int64) (Entry, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if entry.EmployeeID != employeeID {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

// Submit sends the employee's draft and rejected entries for the week
// starting at the Monday of weekStart.
func (s *Service) Submit(ctx context.Context, employeeID int64, weekStart time.Time) (int64, error) {
	from := WeekOf(weekStart)
	to := from.AddDate(0, 0, 6)
	count, err := s.store.SubmitRange(ctx, employeeID, from, to)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrNothingToSubmit
	}
	managerID, err := s.store.ManagerOf(ctx, employeeID)
	if err != nil {
		slog.Warn("timesheet manager lookup failed", "err", err)
	} else if managerID > 0 {
		s.notify(ctx, managerID, "timesheet_submitted", "Timesheet awaiting review",
			fmt.Sprintf("%d timesheet entries for the week of %s were submitted", count, from.Format("2006-01-02")))
	}
	return count, nil
}

// Review approves or rejects a submitted entry. The reviewer must be the
// employee's manager or HR and never the owner.
func (s *Service) Review(ctx context.Context, user auth.UserContext, id int64, approve bool, note string) (Entry, Entry, error) {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, Entry{}, err
	}
	if before.EmployeeID == user.EmployeeID {
		return Entry{}, Entry{}, ErrForbidden
	}
	if !auth.IsPrivileged(user.RoleName) {
		managerID, err := s.store.ManagerOf(ctx, before.EmployeeID)
		if err != nil {
			return Entry{}, Entry{}, err
		}
		if user.EmployeeID == 0 || managerID != user.EmployeeID {
			return Entry{}, Entry{}, ErrForbidden
		}
	}
	if before.Status != StatusSubmitted {
		return Entry{}, Entry{}, ErrInvalidState
	}

	status := StatusApproved
	if !approve {
		status = StatusRejected
	}
	if err := s.store.Review(ctx, id, status, user.UserID, strings.TrimSpace(note)); err != nil {
		return Entry{}, Entry{}, err
	}
	after, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, Entry{}, err
	}
	if !approve {
		s.notify(ctx, after.EmployeeID, "timesheet_rejected", "Timesheet entry rejected",
			fmt.Sprintf("Your entry for %s was rejected", after.WorkDate.Format("2006-01-02")))
	}
	return before, after, nil
}

// Lock freezes the approved entries of the week. A zero employeeID locks
// the week for everyone.
func (s *Service) Lock(ctx context.Context, weekStart time.Time, employeeID int64) (int64, error) {
	from := WeekOf(weekStart)
	return s.store.LockRange(ctx, from, from.AddDate(0, 0, 6), employeeID)
}

func (s *Service) notify(ctx context.Context, employeeID int64, ntype, title, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyEmployee(ctx, employeeID, ntype, title, body); err != nil {
		slog.Warn("timesheet notification failed", "employeeId", employeeID, "err", err)
	}
}
