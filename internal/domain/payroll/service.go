package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hrms/internal/domain/holidays"
	"hrms/internal/platform/metrics"
)

type CalendarSource interface {
	Calendar(ctx context.Context, from, to time.Time) (holidays.Calendar, error)
}

type Notifier interface {
	NotifyEmployee(ctx context.Context, employeeID int64, ntype, title, body string) error
}

// SlipFiles persists rendered payslips.
type SlipFiles interface {
	Write(slip Slip) (string, error)
	Read(path string) ([]byte, error)
}

type Service struct {
	store    StoreAPI
	calendar CalendarSource
	notifier Notifier
	files    SlipFiles
	Metrics  *metrics.Collector
}

func NewService(store StoreAPI, calendar CalendarSource, notifier Notifier, files SlipFiles) *Service {
	return &Service{store: store, calendar: calendar, notifier: notifier, files: files}
}

func ValidPeriod(year, month int) bool {
	return year >= 2000 && year <= 2100 && month >= 1 && month <= 12
}

func (s *Service) GetStructure(ctx context.Context, employeeID int64) (Structure, error) {
	return s.store.GetStructure(ctx, employeeID)
}

func (s *Service) ListStructures(ctx context.Context, limit, offset int) ([]Structure, int, error) {
	total, err := s.store.CountStructures(ctx)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.ListStructures(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// SetStructure upserts the employee's salary structure and returns the
// previous one (zero when new) with the stored result.
func (s *Service) SetStructure(ctx context.Context, st Structure) (Structure, Structure, error) {
	if st.Base < 0 || st.Allowances < 0 || st.Deductions < 0 {
		return Structure{}, Structure{}, ErrInvalidAmount
	}
	st.Currency = strings.ToUpper(strings.TrimSpace(st.Currency))
	if st.Currency == "" {
		st.Currency = DefaultCurrency
	}
	before, err := s.store.GetStructure(ctx, st.EmployeeID)
	if err != nil && !errors.Is(err, ErrUnknownEmployee) {
		return Structure{}, Structure{}, err
	}
	if err := s.store.UpsertStructure(ctx, st); err != nil {
		return Structure{}, Structure{}, err
	}
	after, err := s.store.GetStructure(ctx, st.EmployeeID)
	return before, after, err
}

func (s *Service) AddAdjustment(ctx context.Context, actorID int64, adj Adjustment) (Adjustment, error) {
	if !ValidPeriod(adj.Year, adj.Month) {
		return Adjustment{}, ErrInvalidPeriod
	}
	adj.Label = strings.TrimSpace(adj.Label)
	if actorID > 0 {
		adj.CreatedBy = &actorID
	}
	id, err := s.store.CreateAdjustment(ctx, adj)
	if err != nil {
		return Adjustment{}, err
	}
	adj.ID = id
	return adj, nil
}

func (s *Service) ListAdjustments(ctx context.Context, year, month int) ([]Adjustment, error) {
	if !ValidPeriod(year, month) {
		return nil, ErrInvalidPeriod
	}
	return s.store.ListAdjustments(ctx, year, month)
}

// Generate creates or refreshes the run for the month with one slip per
// active employee. Locked runs are rejected.
func (s *Service) Generate(ctx context.Context, year, month int) (RunSummary, error) {
	if !ValidPeriod(year, month) {
		return RunSummary{}, ErrInvalidPeriod
	}
	run, err := s.store.EnsureRun(ctx, year, month)
	if err != nil {
		return RunSummary{}, err
	}
	if run.Status == RunStatusLocked {
		return RunSummary{}, ErrRunLocked
	}

	periodStart, periodEnd := run.Period()
	cal, err := s.calendar.Calendar(ctx, periodStart, periodEnd)
	if err != nil {
		return RunSummary{}, err
	}
	workingDays := cal.CountWorkingDays(periodStart, periodEnd)

	inputs, err := s.store.PayInputs(ctx, run)
	if err != nil {
		return RunSummary{}, err
	}
	if len(inputs) == 0 {
		return RunSummary{}, ErrNoEmployees
	}
	slips := make([]Slip, 0, len(inputs))
	for _, in := range inputs {
		slips = append(slips, ComputeSlip(in, cal, periodStart, periodEnd, workingDays))
	}
	if err := s.store.ReplaceSlips(ctx, run.ID, workingDays, slips); err != nil {
		return RunSummary{}, err
	}
	s.Metrics.Event("payroll_generated")
	slog.Info("payroll generated", "runId", run.ID, "year", year, "month", month, "slips", len(slips))
	return s.Summary(ctx, run.ID)
}

// Lock freezes a processed run, renders and publishes its payslips and
// notifies each employee. Rendering failures leave the slip without a
// file; it is rendered again on first download.
func (s *Service) Lock(ctx context.Context, actorID, runID int64) (Run, int, error) {
	if err := s.store.LockRun(ctx, runID, actorID); err != nil {
		return Run{}, 0, err
	}
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return Run{}, 0, err
	}
	slips, err := s.store.ListSlips(ctx, runID)
	if err != nil {
		return run, 0, err
	}
	for _, slip := range slips {
		s.storeFile(ctx, slip)
	}
	if err := s.store.PublishSlips(ctx, runID); err != nil {
		return run, 0, err
	}
	period := time.Date(run.Year, time.Month(run.Month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
	if s.notifier != nil {
		for _, slip := range slips {
			if err := s.notifier.NotifyEmployee(ctx, slip.EmployeeID, "payslip_published", "Payslip published",
				fmt.Sprintf("Your payslip for %s is available for download.", period)); err != nil {
				slog.Warn("payslip notification failed", "employeeId", slip.EmployeeID, "err", err)
			}
		}
	}
	s.Metrics.Event("payroll_locked")
	return run, len(slips), nil
}

func (s *Service) storeFile(ctx context.Context, slip Slip) string {
	if s.files == nil {
		return ""
	}
	path, err := s.files.Write(slip)
	if err != nil {
		slog.Warn("payslip pdf generation failed", "slipId", slip.ID, "err", err)
		return ""
	}
	if err := s.store.SetSlipFile(ctx, slip.ID, path); err != nil {
		slog.Warn("payslip file path update failed", "slipId", slip.ID, "err", err)
	}
	return path
}

func (s *Service) GetRun(ctx context.Context, id int64) (Run, error) {
	return s.store.GetRun(ctx, id)
}

func (s *Service) ListRuns(ctx context.Context, limit, offset int) ([]Run, int, error) {
	total, err := s.store.CountRuns(ctx)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.ListRuns(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) Summary(ctx context.Context, runID int64) (RunSummary, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return RunSummary{}, err
	}
	slips, err := s.store.ListSlips(ctx, runID)
	if err != nil {
		return RunSummary{}, err
	}
	return Summarize(run, slips), nil
}

func Summarize(run Run, slips []Slip) RunSummary {
	summary := RunSummary{Run: run, EmployeeCount: len(slips), Warnings: map[string]int{}}
	for _, slip := range slips {
		summary.TotalGross += slip.Gross
		summary.TotalDeductions += slip.TotalDeductions
		summary.TotalLOP += slip.LOPAmount
		summary.TotalNet += slip.Net
		for _, w := range slip.Warnings {
			summary.Warnings[w]++
		}
	}
	summary.TotalGross = round2(summary.TotalGross)
	summary.TotalDeductions = round2(summary.TotalDeductions)
	summary.TotalLOP = round2(summary.TotalLOP)
	summary.TotalNet = round2(summary.TotalNet)
	return summary
}

func (s *Service) RunSlips(ctx context.Context, runID int64) ([]Slip, error) {
	if _, err := s.store.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.store.ListSlips(ctx, runID)
}

// MySlips lists the employee's published payslips.
func (s *Service) MySlips(ctx context.Context, employeeID int64) ([]Slip, error) {
	return s.store.SlipsForEmployee(ctx, employeeID, true)
}

// SlipFor returns the slip when the viewer may see it. Employees only see
// their own published slips.
func (s *Service) SlipFor(ctx context.Context, slipID, viewerEmployeeID int64, privileged bool) (Slip, error) {
	slip, err := s.store.GetSlip(ctx, slipID)
	if err != nil {
		return Slip{}, err
	}
	if privileged {
		return slip, nil
	}
	if viewerEmployeeID == 0 || slip.EmployeeID != viewerEmployeeID {
		return Slip{}, ErrForbidden
	}
	if slip.PublishedAt == nil {
		return Slip{}, ErrSlipNotFound
	}
	return slip, nil
}

// PDF returns the rendered payslip, generating and storing it on demand.
func (s *Service) PDF(ctx context.Context, slip Slip) ([]byte, error) {
	if s.files != nil && slip.FilePath != "" {
		data, err := s.files.Read(slip.FilePath)
		if err == nil {
			return data, nil
		}
		slog.Warn("stored payslip unreadable, rendering again", "slipId", slip.ID, "err", err)
	}
	if slip.PublishedAt != nil {
		s.storeFile(ctx, slip)
	}
	return RenderPayslip(slip)
}
