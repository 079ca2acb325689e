package payroll

import (
	"math"
	"time"

	"hrms/internal/domain/holidays"
	"hrms/internal/domain/leave"
)

type InputLine struct {
	Type   string
	Amount float64
}

const (
	LineEarning   = "earning"
	LineDeduction = "deduction"
)

func ComputePayroll(baseSalary float64, inputs []InputLine) (gross, deductions, net float64) {
	gross = baseSalary
	for _, input := range inputs {
		switch input.Type {
		case LineEarning:
			gross += input.Amount
		case LineDeduction:
			deductions += input.Amount
		}
	}
	net = gross - deductions
	return round2(gross), round2(deductions), round2(net)
}

// LossOfPay charges base / workingDays for each unpaid day.
func LossOfPay(base, unpaidDays float64, workingDays int) float64 {
	if base <= 0 || unpaidDays <= 0 || workingDays <= 0 {
		return 0
	}
	return round2(base / float64(workingDays) * unpaidDays)
}

// UnpaidDays counts the working days of each window that fall inside the
// period. Half-day flags apply only when the window boundary is inside it.
func UnpaidDays(cal holidays.Calendar, windows []LeaveWindow, periodStart, periodEnd time.Time) float64 {
	var total float64
	for _, w := range windows {
		start, end := w.StartDate, w.EndDate
		if periodStart.After(start) {
			start = periodStart
		}
		if periodEnd.Before(end) {
			end = periodEnd
		}
		if end.Before(start) {
			continue
		}
		days, err := leave.CalculateRequestDays(cal, start, end,
			w.StartHalf && start.Equal(w.StartDate), w.EndHalf && end.Equal(w.EndDate))
		if err != nil {
			continue
		}
		total += days
	}
	return total
}

// ComputeSlip applies the structure, adjustments and loss of pay for one
// employee. Positive adjustments are bonus, negative ones deductions.
func ComputeSlip(in PayInput, cal holidays.Calendar, periodStart, periodEnd time.Time, workingDays int) Slip {
	st := in.Structure
	slip := Slip{
		EmployeeID: in.EmployeeID,
		Base:       st.Base,
		Allowances: st.Allowances,
		Deductions: st.Deductions,
		Currency:   st.Currency,
		Warnings:   []string{},
	}
	if slip.Currency == "" {
		slip.Currency = DefaultCurrency
	}

	inputs := []InputLine{{Type: LineEarning, Amount: st.Allowances}, {Type: LineDeduction, Amount: st.Deductions}}
	for _, amount := range in.Adjustments {
		if amount >= 0 {
			slip.Bonus += amount
			inputs = append(inputs, InputLine{Type: LineEarning, Amount: amount})
		} else {
			inputs = append(inputs, InputLine{Type: LineDeduction, Amount: -amount})
		}
	}
	slip.Bonus = round2(slip.Bonus)

	slip.LOPDays = UnpaidDays(cal, in.Unpaid, periodStart, periodEnd)
	slip.LOPAmount = LossOfPay(st.Base, slip.LOPDays, workingDays)
	if slip.LOPAmount > 0 {
		inputs = append(inputs, InputLine{Type: LineDeduction, Amount: slip.LOPAmount})
	}

	slip.Gross, slip.TotalDeductions, slip.Net = ComputePayroll(st.Base, inputs)

	if st.Base <= 0 {
		slip.Warnings = append(slip.Warnings, WarningMissingSalary)
	}
	if !in.HasBank {
		slip.Warnings = append(slip.Warnings, WarningMissingBank)
	}
	if slip.Net < 0 {
		slip.Warnings = append(slip.Warnings, WarningNegativeNet)
	}
	if in.PreviousNet > 0 && math.Abs(slip.Net-in.PreviousNet)/in.PreviousNet > 0.5 {
		slip.Warnings = append(slip.Warnings, WarningNetVariance)
	}
	return slip
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
