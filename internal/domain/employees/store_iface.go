package employees

import (
	"context"
	"time"
)

type StoreAPI interface {
	Get(ctx context.Context, employeeID int64) (Employee, error)
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]Employee, error)
	Create(ctx context.Context, emp Employee) (int64, error)
	Update(ctx context.Context, employeeID int64, emp Employee) error
	Terminate(ctx context.Context, employeeID int64, on time.Time) error
	IsManagerOf(ctx context.Context, managerEmployeeID, employeeID int64) (bool, error)
	ManagerChain(ctx context.Context, employeeID int64) ([]int64, error)
	Exists(ctx context.Context, employeeID int64) (bool, error)
	NextEmployeeCode(ctx context.Context) (string, error)
}
