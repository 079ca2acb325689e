package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hrms/internal/domain/holidays"
	"hrms/internal/platform/cache"
	"hrms/internal/platform/metrics"
)

type Service struct {
	store       StoreAPI
	calendar    CalendarSource
	locker      cache.Locker
	rules       Rules
	dedupWindow time.Duration
	Metrics     *metrics.Collector
	Now         func() time.Time
}

func NewService(store StoreAPI, calendar CalendarSource, locker cache.Locker, rules Rules, dedupWindow time.Duration) *Service {
	if locker == nil {
		locker = cache.NewMemoryLocker()
	}
	if dedupWindow <= 0 {
		dedupWindow = time.Minute
	}
	return &Service{store: store, calendar: calendar, locker: locker, rules: rules, dedupWindow: dedupWindow, Now: time.Now}
}

func (s *Service) Rules() Rules {
	return s.rules
}

// CheckIn records today's check-in. A repeat check-in returns the stored
// record with created=false. Concurrent submits for the same day are
// serialised by a short lock.
func (s *Service) CheckIn(ctx context.Context, employeeID int64, in CheckInInput) (Record, bool, error) {
	in.WorkMode = strings.ToLower(strings.TrimSpace(in.WorkMode))
	if in.WorkMode == "" {
		in.WorkMode = ModeOffice
	}
	if !ValidWorkMode(in.WorkMode) {
		return Record{}, false, ErrInvalidWorkMode
	}

	now := s.Now().UTC()
	day := s.rules.WorkDate(now)
	if existing, err := s.store.GetByDay(ctx, employeeID, day); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Record{}, false, err
	}

	key := fmt.Sprintf("attendance:checkin:%d:%s", employeeID, day.Format("2006-01-02"))
	acquired, err := s.locker.Acquire(ctx, key, s.dedupWindow)
	if err != nil {
		slog.Warn("check-in lock unavailable", "err", err)
		acquired = true
	}
	if !acquired {
		if existing, err := s.store.GetByDay(ctx, employeeID, day); err == nil {
			return existing, false, nil
		}
		return Record{}, false, ErrCheckInInProgress
	}

	rec, created, err := s.store.CreateCheckIn(ctx, Record{
		EmployeeID: employeeID,
		WorkDate:   day,
		CheckInAt:  &now,
		WorkMode:   in.WorkMode,
		Location:   strings.TrimSpace(in.Location),
		Note:       strings.TrimSpace(in.Note),
		Status:     s.rules.CheckInStatus(now),
	})
	if err != nil {
		if releaseErr := s.locker.Release(ctx, key); releaseErr != nil {
			slog.Warn("check-in lock release failed", "err", releaseErr)
		}
		return Record{}, false, err
	}
	if created {
		s.Metrics.Event("attendance_checkin")
	}
	return rec, created, nil
}

func (s *Service) CheckOut(ctx context.Context, employeeID int64, note string) (Record, error) {
	now := s.Now().UTC()
	day := s.rules.WorkDate(now)
	rec, err := s.store.GetByDay(ctx, employeeID, day)
	if errors.Is(err, ErrNotFound) || (err == nil && rec.CheckInAt == nil) {
		return Record{}, ErrNotCheckedIn
	}
	if err != nil {
		return Record{}, err
	}
	if rec.CheckOutAt != nil {
		return Record{}, ErrAlreadyCheckedOut
	}

	hours := WorkedHours(*rec.CheckInAt, now)
	status := s.rules.FinalStatus(s.rules.CheckInStatus(*rec.CheckInAt), hours)
	if err := s.store.CheckOut(ctx, rec.ID, now, hours, status, strings.TrimSpace(note)); err != nil {
		return Record{}, err
	}
	s.Metrics.Event("attendance_checkout")
	return s.store.GetByDay(ctx, employeeID, day)
}

func (s *Service) Today(ctx context.Context, employeeID int64) (Today, error) {
	day := s.rules.WorkDate(s.Now())
	out := Today{Date: day}
	cal, err := s.calendar.Calendar(ctx, day, day)
	if err != nil {
		return Today{}, err
	}
	out.IsHoliday = cal.IsHoliday(day)
	out.IsWeekend = holidays.IsWeekend(day)

	rec, err := s.store.GetByDay(ctx, employeeID, day)
	if errors.Is(err, ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return Today{}, err
	}
	out.Record = &rec
	out.CheckedIn = rec.CheckInAt != nil
	out.CheckedOut = rec.CheckOutAt != nil
	return out, nil
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Record, int, error) {
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

// Summary counts the given month (first day of month) for one employee.
func (s *Service) Summary(ctx context.Context, employeeID int64, month time.Time) (Summary, error) {
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	records, err := s.store.List(ctx, Filter{EmployeeID: employeeID, From: from, To: to}, 0, 0)
	if err != nil {
		return Summary{}, err
	}
	cal, err := s.calendar.Calendar(ctx, from, to)
	if err != nil {
		return Summary{}, err
	}
	leaves, err := s.store.ApprovedLeaves(ctx, employeeID, from, to)
	if err != nil {
		return Summary{}, err
	}
	sum := s.rules.Summarize(records, cal, leaves, from, to, s.rules.WorkDate(s.Now()))
	sum.EmployeeID = employeeID
	sum.Month = from.Format("2006-01")
	return sum, nil
}

// Mark writes an HR correction for one employee and day.
func (s *Service) Mark(ctx context.Context, in MarkInput) (Record, error) {
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	if !ValidStatus(in.Status) {
		return Record{}, ErrInvalidStatus
	}
	if in.WorkMode == "" {
		in.WorkMode = ModeOffice
	}
	if !ValidWorkMode(in.WorkMode) {
		return Record{}, ErrInvalidWorkMode
	}
	rec := Record{
		EmployeeID: in.EmployeeID,
		WorkDate:   time.Date(in.Date.Year(), in.Date.Month(), in.Date.Day(), 0, 0, 0, 0, time.UTC),
		CheckInAt:  in.CheckInAt,
		CheckOutAt: in.CheckOutAt,
		WorkMode:   in.WorkMode,
		Note:       strings.TrimSpace(in.Note),
		Status:     in.Status,
	}
	if in.CheckInAt != nil && in.CheckOutAt != nil {
		if !in.CheckOutAt.After(*in.CheckInAt) {
			return Record{}, ErrInvalidTimes
		}
		rec.WorkedHours = WorkedHours(*in.CheckInAt, *in.CheckOutAt)
	}
	return s.store.Upsert(ctx, rec)
}
