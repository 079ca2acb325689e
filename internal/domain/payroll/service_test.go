package payroll

import (
	"context"
	"errors"
	"testing"
	"time"

	"hrms/internal/domain/holidays"
)

type fakeStore struct {
	StoreAPI
	runs      map[int64]Run
	inputs    []PayInput
	slips     map[int64][]Slip
	files     map[int64]string
	published map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{runs: map[int64]Run{}, slips: map[int64][]Slip{}, files: map[int64]string{}, published: map[int64]bool{}}
}

func (f *fakeStore) EnsureRun(_ context.Context, year, month int) (Run, error) {
	for _, r := range f.runs {
		if r.Year == year && r.Month == month {
			return r, nil
		}
	}
	r := Run{ID: int64(len(f.runs) + 1), Year: year, Month: month, Status: RunStatusDraft}
	f.runs[r.ID] = r
	return r, nil
}

func (f *fakeStore) GetRun(_ context.Context, id int64) (Run, error) {
	r, ok := f.runs[id]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return r, nil
}

func (f *fakeStore) PayInputs(context.Context, Run) ([]PayInput, error) {
	return f.inputs, nil
}

func (f *fakeStore) ReplaceSlips(_ context.Context, runID int64, workingDays int, slips []Slip) error {
	r := f.runs[runID]
	if r.Status == RunStatusLocked {
		return ErrRunLocked
	}
	r.Status = RunStatusProcessed
	r.WorkingDays = workingDays
	f.runs[runID] = r
	stored := make([]Slip, len(slips))
	for i, s := range slips {
		s.ID = runID*100 + int64(i) + 1
		s.RunID = runID
		s.Year, s.Month = r.Year, r.Month
		stored[i] = s
	}
	f.slips[runID] = stored
	return nil
}

func (f *fakeStore) ListSlips(_ context.Context, runID int64) ([]Slip, error) {
	return f.slips[runID], nil
}

func (f *fakeStore) LockRun(_ context.Context, runID, actorID int64) error {
	r, ok := f.runs[runID]
	switch {
	case !ok:
		return ErrRunNotFound
	case r.Status == RunStatusLocked:
		return ErrRunLocked
	case r.Status != RunStatusProcessed:
		return ErrInvalidState
	}
	r.Status = RunStatusLocked
	r.LockedBy = &actorID
	f.runs[runID] = r
	return nil
}

func (f *fakeStore) SetSlipFile(_ context.Context, slipID int64, path string) error {
	f.files[slipID] = path
	return nil
}

func (f *fakeStore) PublishSlips(_ context.Context, runID int64) error {
	f.published[runID] = true
	return nil
}

func (f *fakeStore) GetSlip(_ context.Context, id int64) (Slip, error) {
	for runID, slips := range f.slips {
		for _, s := range slips {
			if s.ID == id {
				if f.published[runID] {
					now := time.Now()
					s.PublishedAt = &now
				}
				return s, nil
			}
		}
	}
	return Slip{}, ErrSlipNotFound
}

type staticCalendar struct{ cal holidays.Calendar }

func (s staticCalendar) Calendar(context.Context, time.Time, time.Time) (holidays.Calendar, error) {
	return s.cal, nil
}

type memoryFiles struct{ written int }

func (m *memoryFiles) Write(slip Slip) (string, error) {
	m.written++
	return "mem://" + slip.EmployeeCode, nil
}

func (m *memoryFiles) Read(string) ([]byte, error) { return []byte("%PDF"), nil }

type recordingNotifier struct{ employees []int64 }

func (r *recordingNotifier) NotifyEmployee(_ context.Context, employeeID int64, _, _, _ string) error {
	r.employees = append(r.employees, employeeID)
	return nil
}

func newTestService(store *fakeStore) (*Service, *memoryFiles, *recordingNotifier) {
	files := &memoryFiles{}
	notifier := &recordingNotifier{}
	return NewService(store, staticCalendar{cal: holidays.NewCalendar(nil)}, notifier, files), files, notifier
}

func TestGenerateComputesLossOfPay(t *testing.T) {
	store := newFakeStore()
	store.inputs = []PayInput{
		{EmployeeID: 1, Structure: Structure{Base: 22000}, HasBank: true, Unpaid: []LeaveWindow{{
			StartDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		}}},
		{EmployeeID: 2, Structure: Structure{Base: 30000, Allowances: 2000}, HasBank: true},
	}
	svc, _, _ := newTestService(store)

	summary, err := svc.Generate(context.Background(), 2026, 3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if summary.Run.Status != RunStatusProcessed || summary.Run.WorkingDays != 22 {
		t.Fatalf("unexpected run %+v", summary.Run)
	}
	if summary.EmployeeCount != 2 {
		t.Fatalf("expected 2 slips, got %d", summary.EmployeeCount)
	}
	if summary.TotalLOP != 2000 {
		t.Fatalf("expected LOP 2000, got %v", summary.TotalLOP)
	}
	if summary.TotalNet != 52000 {
		t.Fatalf("expected net 52000, got %v", summary.TotalNet)
	}
}

func TestGenerateRejectsLockedRun(t *testing.T) {
	store := newFakeStore()
	store.runs[1] = Run{ID: 1, Year: 2026, Month: 2, Status: RunStatusLocked}
	svc, _, _ := newTestService(store)

	if _, err := svc.Generate(context.Background(), 2026, 2); !errors.Is(err, ErrRunLocked) {
		t.Fatalf("expected ErrRunLocked, got %v", err)
	}
	if _, err := svc.Generate(context.Background(), 2026, 13); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestLockPublishesAndNotifies(t *testing.T) {
	store := newFakeStore()
	store.inputs = []PayInput{
		{EmployeeID: 4, Structure: Structure{Base: 1000}},
		{EmployeeID: 5, Structure: Structure{Base: 2000}},
	}
	svc, files, notifier := newTestService(store)

	if _, _, err := svc.Lock(context.Background(), 1, 99); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	summary, err := svc.Generate(context.Background(), 2026, 4)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	run, count, err := svc.Lock(context.Background(), 1, summary.Run.ID)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if run.Status != RunStatusLocked || count != 2 {
		t.Fatalf("unexpected lock result %+v %d", run, count)
	}
	if files.written != 2 || len(store.files) != 2 {
		t.Fatalf("expected payslips rendered, got %d", files.written)
	}
	if !store.published[run.ID] || len(notifier.employees) != 2 {
		t.Fatalf("expected slips published and employees notified")
	}
	if _, _, err := svc.Lock(context.Background(), 1, run.ID); !errors.Is(err, ErrRunLocked) {
		t.Fatalf("expected second lock to fail, got %v", err)
	}
}

func TestSlipForRestrictsEmployees(t *testing.T) {
	store := newFakeStore()
	store.inputs = []PayInput{{EmployeeID: 4, Structure: Structure{Base: 1000}}}
	svc, _, _ := newTestService(store)
	summary, err := svc.Generate(context.Background(), 2026, 5)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	slipID := store.slips[summary.Run.ID][0].ID

	if _, err := svc.SlipFor(context.Background(), slipID, 4, false); !errors.Is(err, ErrSlipNotFound) {
		t.Fatalf("expected unpublished slip hidden, got %v", err)
	}
	if _, err := svc.SlipFor(context.Background(), slipID, 7, false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.SlipFor(context.Background(), slipID, 0, true); err != nil {
		t.Fatalf("privileged viewer: %v", err)
	}
	if _, _, err := svc.Lock(context.Background(), 1, summary.Run.ID); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := svc.SlipFor(context.Background(), slipID, 4, false); err != nil {
		t.Fatalf("owner after publish: %v", err)
	}
}

func TestRenderPayslip(t *testing.T) {
	data, err := RenderPayslip(Slip{Year: 2026, Month: 3, EmployeeName: "Asha Rao", EmployeeCode: "E001", Base: 1000, Gross: 1000, Net: 1000, Currency: "INR"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		t.Fatalf("expected a PDF document")
	}
}
