package workupdates

import (
	"context"
	"errors"
	"strings"
	"time"

	"hrms/internal/platform/db"
)

type Service struct {
	store StoreAPI
	Now   func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store, Now: time.Now}
}

func today(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Submit records the employee's update for the date. A second submit for
// the same date overwrites the first, but only while that date is today.
func (s *Service) Submit(ctx context.Context, employeeID int64, in Input) (Update, bool, error) {
	in.Summary = strings.TrimSpace(in.Summary)
	if in.Summary == "" {
		return Update{}, false, ErrEmptySummary
	}
	now := today(s.Now())
	if in.WorkDate.IsZero() {
		in.WorkDate = now
	}
	if in.WorkDate.After(now) {
		return Update{}, false, ErrFutureDate
	}

	update := Update{
		EmployeeID:      employeeID,
		WorkDate:        in.WorkDate,
		Summary:         in.Summary,
		Blockers:        strings.TrimSpace(in.Blockers),
		PlannedTomorrow: strings.TrimSpace(in.PlannedTomorrow),
	}

	existing, err := s.store.GetByDay(ctx, employeeID, in.WorkDate)
	switch {
	case errors.Is(err, ErrNotFound):
		_, err := s.store.Create(ctx, update)
		if db.IsUniqueViolation(err) {
			existing, err = s.store.GetByDay(ctx, employeeID, in.WorkDate)
			if err != nil {
				return Update{}, false, err
			}
			return s.overwrite(ctx, existing, update, now)
		}
		if err != nil {
			return Update{}, false, err
		}
		created, err := s.store.GetByDay(ctx, employeeID, in.WorkDate)
		return created, true, err
	case err != nil:
		return Update{}, false, err
	}
	return s.overwrite(ctx, existing, update, now)
}

func (s *Service) overwrite(ctx context.Context, existing, update Update, now time.Time) (Update, bool, error) {
	if !existing.WorkDate.Equal(now) {
		return Update{}, false, ErrUpdateClosed
	}
	update.ID = existing.ID
	if err := s.store.Update(ctx, update); err != nil {
		return Update{}, false, err
	}
	stored, err := s.store.GetByDay(ctx, update.EmployeeID, update.WorkDate)
	return stored, false, err
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Update, int, error) {
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
