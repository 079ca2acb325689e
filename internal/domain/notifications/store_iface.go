package notifications

import "context"

type StoreAPI interface {
	CreateNotification(ctx context.Context, userID int64, ntype, title, body string) error
	UserEmail(ctx context.Context, userID int64) (string, error)
	UserIDForEmployee(ctx context.Context, employeeID int64) (int64, error)
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, error)
	CountNotifications(ctx context.Context, userID int64, unreadOnly bool) (int, error)
	MarkRead(ctx context.Context, userID, notificationID int64) (bool, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	EmailSettings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, settings Settings) error
}
