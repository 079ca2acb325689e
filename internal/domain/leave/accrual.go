package leave

import (
	"context"
	"math"
	"time"
)

type AccrualSummary struct {
	PoliciesProcessed int `json:"policiesProcessed"`
	EmployeesAccrued  int `json:"employeesAccrued"`
}

// AccrualPolicy is a policy joined with its leave type entitlement.
type AccrualPolicy struct {
	PolicyID       int64
	LeaveTypeID    int64
	AccrualRate    float64
	AccrualPeriod  string
	Entitlement    float64
	CarryOverLimit float64
	LastAccruedOn  *time.Time
}

type AccrualStore interface {
	ListAccrualPolicies(ctx context.Context) ([]AccrualPolicy, error)
	ActiveEmployees(ctx context.Context) (map[int64]*time.Time, error)
	// AccruePolicy credits grants in one transaction, capping each balance
	// when capValue is set, and marks the policy accrued for periodStart.
	AccruePolicy(ctx context.Context, policyID, leaveTypeID int64, periodStart time.Time, grants map[int64]float64, capValue *float64) error
}

// ApplyAccruals credits every policy whose current period has not been
// accrued yet. Running it twice in the same period is a no-op.
func ApplyAccruals(ctx context.Context, store AccrualStore, now time.Time) (AccrualSummary, error) {
	var summary AccrualSummary

	policies, err := store.ListAccrualPolicies(ctx)
	if err != nil {
		return summary, err
	}
	var employees map[int64]*time.Time

	for _, policy := range policies {
		if policy.AccrualRate <= 0 {
			continue
		}
		periodStart := accrualPeriodStart(now, policy.AccrualPeriod)
		if periodStart.IsZero() {
			continue
		}
		if policy.LastAccruedOn != nil && !policy.LastAccruedOn.Before(periodStart) {
			continue
		}

		if employees == nil {
			employees, err = store.ActiveEmployees(ctx)
			if err != nil {
				return summary, err
			}
		}

		grants := make(map[int64]float64, len(employees))
		for employeeID, joined := range employees {
			accrual := policy.AccrualRate
			if joined != nil && joined.After(periodStart) {
				accrual = proratedAccrual(policy.AccrualRate, *joined, periodStart, policy.AccrualPeriod)
			}
			if accrual > 0 {
				grants[employeeID] = round2(accrual)
			}
		}

		var capValue *float64
		if policy.Entitlement > 0 {
			limit := policy.Entitlement + policy.CarryOverLimit
			capValue = &limit
		}
		if err := store.AccruePolicy(ctx, policy.PolicyID, policy.LeaveTypeID, periodStart, grants, capValue); err != nil {
			return summary, err
		}
		summary.PoliciesProcessed++
		summary.EmployeesAccrued += len(grants)
	}

	return summary, nil
}

func accrualPeriodStart(now time.Time, period string) time.Time {
	switch period {
	case PeriodWeekly:
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return time.Date(now.Year(), now.Month(), now.Day()-weekday+1, 0, 0, 0, 0, now.Location())
	case PeriodMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case PeriodYearly:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Time{}
	}
}

func accrualPeriodEnd(periodStart time.Time, period string) time.Time {
	switch period {
	case PeriodWeekly:
		return periodStart.AddDate(0, 0, 7)
	case PeriodMonthly:
		return periodStart.AddDate(0, 1, 0)
	default:
		return periodStart.AddDate(1, 0, 0)
	}
}

// proratedAccrual scales the rate by the share of the period remaining
// after the joining date.
func proratedAccrual(rate float64, joined, periodStart time.Time, period string) float64 {
	end := accrualPeriodEnd(periodStart, period)
	total := end.Sub(periodStart).Hours()
	remaining := end.Sub(joined).Hours()
	if remaining <= 0 || total <= 0 {
		return 0
	}
	return rate * (remaining / total)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
