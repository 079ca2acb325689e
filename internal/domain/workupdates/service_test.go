package workupdates

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeStore struct {
	items  map[string]Update
	nextID int64
}

func key(employeeID int64, day time.Time) string {
	return fmt.Sprintf("%d/%s", employeeID, day.Format("2006-01-02"))
}

func (f *fakeStore) GetByDay(_ context.Context, employeeID int64, day time.Time) (Update, error) {
	u, ok := f.items[key(employeeID, day)]
	if !ok {
		return Update{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) Create(_ context.Context, u Update) (int64, error) {
	f.nextID++
	u.ID = f.nextID
	f.items[key(u.EmployeeID, u.WorkDate)] = u
	return u.ID, nil
}

func (f *fakeStore) Update(_ context.Context, u Update) error {
	for k, existing := range f.items {
		if existing.ID == u.ID {
			f.items[k] = u
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) Count(context.Context, Filter) (int, error) { return len(f.items), nil }

func (f *fakeStore) List(context.Context, Filter, int, int) ([]Update, error) { return nil, nil }

func TestSubmitCreatesThenUpdatesSameDay(t *testing.T) {
	store := &fakeStore{items: map[string]Update{}}
	svc := NewService(store)
	now := time.Date(2026, 3, 3, 17, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }
	ctx := context.Background()

	first, created, err := svc.Submit(ctx, 1, Input{Summary: "wired the payroll export"})
	if err != nil || !created {
		t.Fatalf("expected create, got created=%v err=%v", created, err)
	}
	second, created, err := svc.Submit(ctx, 1, Input{Summary: "payroll export and tests", Blockers: "none"})
	if err != nil {
		t.Fatalf("same-day update: %v", err)
	}
	if created || second.ID != first.ID || second.Summary != "payroll export and tests" {
		t.Fatalf("expected in-place update, got %+v (created=%v)", second, created)
	}
	if len(store.items) != 1 {
		t.Fatalf("expected one stored update, got %d", len(store.items))
	}
}

func TestSubmitRules(t *testing.T) {
	store := &fakeStore{items: map[string]Update{}}
	svc := NewService(store)
	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }
	ctx := context.Background()
	yesterday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	if _, _, err := svc.Submit(ctx, 1, Input{WorkDate: yesterday, Summary: "backfill"}); err != nil {
		t.Fatalf("backfill create: %v", err)
	}
	if _, _, err := svc.Submit(ctx, 1, Input{WorkDate: yesterday, Summary: "edit"}); !errors.Is(err, ErrUpdateClosed) {
		t.Fatalf("expected ErrUpdateClosed, got %v", err)
	}
	if _, _, err := svc.Submit(ctx, 1, Input{WorkDate: yesterday.AddDate(0, 0, 2), Summary: "later"}); !errors.Is(err, ErrFutureDate) {
		t.Fatalf("expected ErrFutureDate, got %v", err)
	}
	if _, _, err := svc.Submit(ctx, 1, Input{Summary: "   "}); !errors.Is(err, ErrEmptySummary) {
		t.Fatalf("expected ErrEmptySummary, got %v", err)
	}
}
