package leave

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

func (s *Store) ListAccrualPolicies(ctx context.Context) ([]AccrualPolicy, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT p.id, p.leave_type_id, p.accrual_rate::float8, p.accrual_period,
           t.annual_entitlement::float8, p.carry_over_limit::float8, p.last_accrued_on
    FROM leave_policies p
    JOIN leave_types t ON t.id = p.leave_type_id
    WHERE p.accrual_rate > 0
    ORDER BY p.id
  `)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(r pgx.Rows) (AccrualPolicy, error) {
		var p AccrualPolicy
		err := r.Scan(&p.PolicyID, &p.LeaveTypeID, &p.AccrualRate, &p.AccrualPeriod, &p.Entitlement, &p.CarryOverLimit, &p.LastAccruedOn)
		return p, err
	})
}

func (s *Store) ActiveEmployees(ctx context.Context) (map[int64]*time.Time, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, date_of_joining FROM employees WHERE status IN ('active', 'on_leave')")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]*time.Time{}
	for rows.Next() {
		var id int64
		var joined *time.Time
		if err := rows.Scan(&id, &joined); err != nil {
			return nil, err
		}
		out[id] = joined
	}
	return out, rows.Err()
}

func (s *Store) AccruePolicy(ctx context.Context, policyID, leaveTypeID int64, periodStart time.Time, grants map[int64]float64, capValue *float64) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for employeeID, amount := range grants {
		if capValue == nil {
			_, err = tx.Exec(ctx, `
        INSERT INTO leave_balances (employee_id, leave_type_id, balance)
        VALUES ($1, $2, $3)
        ON CONFLICT (employee_id, leave_type_id) DO UPDATE
        SET balance = leave_balances.balance + EXCLUDED.balance, updated_at = now()
      `, employeeID, leaveTypeID, amount)
		} else {
			_, err = tx.Exec(ctx, `
        INSERT INTO leave_balances (employee_id, leave_type_id, balance)
        VALUES ($1, $2, LEAST($3::numeric, $4::numeric))
        ON CONFLICT (employee_id, leave_type_id) DO UPDATE
        SET balance = GREATEST(leave_balances.balance, LEAST(leave_balances.balance + $3::numeric, $4::numeric)),
            updated_at = now()
      `, employeeID, leaveTypeID, amount, *capValue)
		}
		if err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, "UPDATE leave_policies SET last_accrued_on = $2 WHERE id = $1", policyID, periodStart); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
