package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hrms/internal/domain/holidays"
)

type StoreAPI interface {
	Statuses(ctx context.Context, day time.Time, departmentID int64) ([]EmployeeStatus, error)
}

type CalendarSource interface {
	Calendar(ctx context.Context, from, to time.Time) (holidays.Calendar, error)
}

type Notifier interface {
	NotifyEmployee(ctx context.Context, employeeID int64, ntype, title, body string) error
}

type Service struct {
	store    StoreAPI
	calendar CalendarSource
	notifier Notifier
	Now      func() time.Time
}

func NewService(store StoreAPI, calendar CalendarSource, notifier Notifier) *Service {
	return &Service{store: store, calendar: calendar, notifier: notifier, Now: time.Now}
}

func (s *Service) Dashboard(ctx context.Context, day time.Time, departmentID int64) (Dashboard, error) {
	statuses, err := s.store.Statuses(ctx, day, departmentID)
	if err != nil {
		return Dashboard{}, err
	}
	return Summarize(day, statuses), nil
}

// Trend returns the daily rate for each working day in [from, to].
func (s *Service) Trend(ctx context.Context, from, to time.Time, departmentID int64) ([]DayRate, error) {
	if to.Sub(from) > MaxTrendDays*24*time.Hour {
		return nil, ErrRangeTooLarge
	}
	cal, err := s.calendar.Calendar(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := []DayRate{}
	for _, day := range cal.WorkingDays(from, to) {
		dash, err := s.Dashboard(ctx, day, departmentID)
		if err != nil {
			return nil, err
		}
		out = append(out, DayRate{Date: dash.Date, Total: dash.Total, Compliant: dash.Compliant, Rate: dash.Rate})
	}
	return out, nil
}

// SendReminders notifies everyone missing a timesheet or work update for
// today. Non-working days are skipped.
func (s *Service) SendReminders(ctx context.Context) (ReminderResult, error) {
	now := s.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	result := ReminderResult{Date: formatDay(day)}

	cal, err := s.calendar.Calendar(ctx, day, day)
	if err != nil {
		return result, err
	}
	if !cal.IsWorkingDay(day) {
		result.Skipped = true
		return result, nil
	}
	dash, err := s.Dashboard(ctx, day, 0)
	if err != nil {
		return result, err
	}
	if s.notifier == nil {
		return result, nil
	}
	for _, missing := range dash.Missing {
		err := s.notifier.NotifyEmployee(ctx, missing.EmployeeID, "compliance_reminder", "Daily update missing",
			fmt.Sprintf("No timesheet or work update has been submitted for %s yet", result.Date))
		if err != nil {
			slog.Warn("compliance reminder failed", "employeeId", missing.EmployeeID, "err", err)
			continue
		}
		result.Notified++
	}
	return result, nil
}
