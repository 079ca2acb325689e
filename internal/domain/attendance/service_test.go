package attendance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"hrms/internal/domain/holidays"
	"hrms/internal/platform/cache"
)

type fakeStore struct {
	records map[string]Record
	nextID  int64
	creates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]Record{}}
}

func key(employeeID int64, day time.Time) string {
	return fmt.Sprintf("%d/%s", employeeID, day.Format("2006-01-02"))
}

func (f *fakeStore) GetByDay(_ context.Context, employeeID int64, day time.Time) (Record, error) {
	rec, ok := f.records[key(employeeID, day)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) CreateCheckIn(_ context.Context, rec Record) (Record, bool, error) {
	if existing, ok := f.records[key(rec.EmployeeID, rec.WorkDate)]; ok {
		return existing, false, nil
	}
	f.creates++
	f.nextID++
	rec.ID = f.nextID
	rec.Source = SourceSelf
	f.records[key(rec.EmployeeID, rec.WorkDate)] = rec
	return rec, true, nil
}

func (f *fakeStore) CheckOut(_ context.Context, id int64, at time.Time, hours float64, status, note string) error {
	for k, rec := range f.records {
		if rec.ID == id {
			rec.CheckOutAt = &at
			rec.WorkedHours = hours
			rec.Status = status
			f.records[k] = rec
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) Upsert(_ context.Context, rec Record) (Record, error) {
	rec.Source = SourceManual
	f.records[key(rec.EmployeeID, rec.WorkDate)] = rec
	return rec, nil
}

func (f *fakeStore) Count(context.Context, Filter) (int, error) { return len(f.records), nil }

func (f *fakeStore) List(context.Context, Filter, int, int) ([]Record, error) {
	var out []Record
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeStore) ApprovedLeaves(context.Context, int64, time.Time, time.Time) ([]LeaveSpan, error) {
	return nil, nil
}

type staticCalendar struct{ items []holidays.Holiday }

func (c staticCalendar) Calendar(context.Context, time.Time, time.Time) (holidays.Calendar, error) {
	return holidays.NewCalendar(c.items), nil
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string, time.Duration) (bool, error) { return false, nil }
func (busyLocker) Release(context.Context, string) error                        { return nil }

func newTestService(store StoreAPI, locker cache.Locker, now time.Time) *Service {
	svc := NewService(store, staticCalendar{}, locker, testRules(), time.Minute)
	svc.Now = func() time.Time { return now }
	return svc
}

func TestCheckInIsIdempotentPerDay(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestService(store, cache.NewMemoryLocker(), now)

	first, created, err := svc.CheckIn(context.Background(), 1, CheckInInput{WorkMode: "WFH"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created || first.Status != StatusLate || first.WorkMode != ModeWFH {
		t.Fatalf("unexpected first check-in: created=%v %+v", created, first)
	}

	svc.Now = func() time.Time { return now.Add(2 * time.Hour) }
	second, created, err := svc.CheckIn(context.Background(), 1, CheckInInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("expected the existing record, got created=%v %+v", created, second)
	}
	if store.creates != 1 {
		t.Fatalf("expected a single insert, got %d", store.creates)
	}
}

func TestCheckInRejectsUnknownMode(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, time.Now())
	if _, _, err := svc.CheckIn(context.Background(), 1, CheckInInput{WorkMode: "beach"}); !errors.Is(err, ErrInvalidWorkMode) {
		t.Fatalf("expected ErrInvalidWorkMode, got %v", err)
	}
}

func TestCheckInLockContention(t *testing.T) {
	svc := newTestService(newFakeStore(), busyLocker{}, time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC))
	if _, _, err := svc.CheckIn(context.Background(), 1, CheckInInput{}); !errors.Is(err, ErrCheckInInProgress) {
		t.Fatalf("expected ErrCheckInInProgress, got %v", err)
	}
}

func TestCheckOutFlow(t *testing.T) {
	store := newFakeStore()
	start := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(store, nil, start)

	if _, err := svc.CheckOut(context.Background(), 1, ""); !errors.Is(err, ErrNotCheckedIn) {
		t.Fatalf("expected ErrNotCheckedIn, got %v", err)
	}
	if _, _, err := svc.CheckIn(context.Background(), 1, CheckInInput{}); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	svc.Now = func() time.Time { return start.Add(3 * time.Hour) }
	rec, err := svc.CheckOut(context.Background(), 1, "left early")
	if err != nil {
		t.Fatalf("check-out: %v", err)
	}
	if rec.Status != StatusHalfDay || rec.WorkedHours != 3 {
		t.Fatalf("unexpected check-out record: %+v", rec)
	}
	if _, err := svc.CheckOut(context.Background(), 1, ""); !errors.Is(err, ErrAlreadyCheckedOut) {
		t.Fatalf("expected ErrAlreadyCheckedOut, got %v", err)
	}
}

func TestMarkValidates(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, time.Now())
	in := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)
	out := in.Add(-time.Hour)

	if _, err := svc.Mark(context.Background(), MarkInput{EmployeeID: 1, Date: in, Status: "sleeping"}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.Mark(context.Background(), MarkInput{EmployeeID: 1, Date: in, Status: StatusPresent, CheckInAt: &in, CheckOutAt: &out}); !errors.Is(err, ErrInvalidTimes) {
		t.Fatalf("expected ErrInvalidTimes, got %v", err)
	}
	rec, err := svc.Mark(context.Background(), MarkInput{EmployeeID: 1, Date: in, Status: "Absent"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != StatusAbsent || rec.Source != SourceManual || rec.WorkMode != ModeOffice {
		t.Fatalf("unexpected record: %+v", rec)
	}
}
