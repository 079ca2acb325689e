package timesheets

import (
	"context"
	"time"
)

type StoreAPI interface {
	Get(ctx context.Context, id int64) (Entry, error)
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Entry, error)
	Create(ctx context.Context, entry Entry) (int64, error)
	Update(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, id int64) error
	// DailyHours sums the employee's hours on day, skipping excludeID.
	DailyHours(ctx context.Context, employeeID int64, day time.Time, excludeID int64) (float64, error)
	// HasLocked reports whether the employee has locked entries in [from, to].
	HasLocked(ctx context.Context, employeeID int64, from, to time.Time) (bool, error)
	SubmitRange(ctx context.Context, employeeID int64, from, to time.Time) (int64, error)
	Review(ctx context.Context, id int64, status string, reviewerID int64, note string) error
	LockRange(ctx context.Context, from, to time.Time, employeeID int64) (int64, error)
	ManagerOf(ctx context.Context, employeeID int64) (int64, error)
}

type Notifier interface {
	NotifyEmployee(ctx context.Context, employeeID int64, ntype, title, body string) error
}
