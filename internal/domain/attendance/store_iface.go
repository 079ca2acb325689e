package attendance

import (
	"context"
	"time"

	"hrms/internal/domain/holidays"
)

type StoreAPI interface {
	GetByDay(ctx context.Context, employeeID int64, day time.Time) (Record, error)
	CreateCheckIn(ctx context.Context, rec Record) (Record, bool, error)
	CheckOut(ctx context.Context, id int64, at time.Time, hours float64, status, note string) error
	Upsert(ctx context.Context, rec Record) (Record, error)
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Record, error)
	ApprovedLeaves(ctx context.Context, employeeID int64, from, to time.Time) ([]LeaveSpan, error)
}

// CalendarSource loads holiday calendars; *holidays.Service satisfies it.
type CalendarSource interface {
	Calendar(ctx context.Context, from, to time.Time) (holidays.Calendar, error)
}
