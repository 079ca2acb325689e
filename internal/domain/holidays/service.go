package holidays

import (
	"context"
	"strings"
	"time"
)

type StoreAPI interface {
	Between(ctx context.Context, from, to time.Time) ([]Holiday, error)
	Create(ctx context.Context, h Holiday) (Holiday, error)
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	store StoreAPI
	Now   func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store, Now: time.Now}
}

func (s *Service) ListYear(ctx context.Context, year int) ([]Holiday, error) {
	if year <= 0 {
		year = s.Now().Year()
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return s.store.Between(ctx, from, to)
}

// Upcoming returns holidays from today onwards, at most limit of them.
func (s *Service) Upcoming(ctx context.Context, limit int) ([]Holiday, error) {
	today := truncate(s.Now())
	items, err := s.store.Between(ctx, today, today.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Service) Create(ctx context.Context, h Holiday) (Holiday, error) {
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		return Holiday{}, ErrInvalidName
	}
	if h.Date.IsZero() {
		return Holiday{}, ErrInvalidDate
	}
	h.Date = truncate(h.Date)
	return s.store.Create(ctx, h)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// Calendar loads the holidays covering the range.
func (s *Service) Calendar(ctx context.Context, from, to time.Time) (Calendar, error) {
	items, err := s.store.Between(ctx, truncate(from), truncate(to))
	if err != nil {
		return Calendar{}, err
	}
	return NewCalendar(items), nil
}
