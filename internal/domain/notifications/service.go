package notifications

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
)

var ErrNotFound = errors.New("notification not found")
var ErrInvalidSender = errors.New("emailFrom must be a valid email address")

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer) *Service {
	return &Service{store: store, Mailer: mailer, DefaultFrom: "no-reply@example.com"}
}

// Create stores an in-app notification and mirrors it by email when
// delivery is enabled. Email failures are logged, never returned.
func (s *Service) Create(ctx context.Context, userID int64, ntype, title, body string) error {
	if err := s.store.CreateNotification(ctx, userID, ntype, title, body); err != nil {
		return err
	}

	if s.Mailer == nil {
		return nil
	}

	settings := s.getEmailSettings(ctx)
	if !settings.EmailEnabled {
		return nil
	}
	from := settings.EmailFrom
	if from == "" {
		from = s.DefaultFrom
	}

	email, err := s.store.UserEmail(ctx, userID)
	if err != nil {
		slog.Warn("notification email lookup failed", "err", err)
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, from, email, title, body); err != nil {
		slog.Warn("notification email send failed", "err", err)
	}
	return nil
}

// NotifyEmployee resolves the employee's login and notifies it. Employees
// without a login are skipped.
func (s *Service) NotifyEmployee(ctx context.Context, employeeID int64, ntype, title, body string) error {
	userID, err := s.store.UserIDForEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if userID == 0 {
		return nil
	}
	return s.Create(ctx, userID, ntype, title, body)
}

func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, userID, unreadOnly, limit, offset)
}

func (s *Service) Count(ctx context.Context, userID int64, unreadOnly bool) (int, error) {
	return s.store.CountNotifications(ctx, userID, unreadOnly)
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.store.CountNotifications(ctx, userID, true)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	found, err := s.store.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}

func (s *Service) getEmailSettings(ctx context.Context) Settings {
	settings, err := s.store.EmailSettings(ctx)
	if err != nil {
		return Settings{}
	}
	return settings
}

func (s *Service) GetSettings(ctx context.Context) (Settings, error) {
	return s.store.EmailSettings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, settings Settings) error {
	settings.EmailFrom = strings.TrimSpace(settings.EmailFrom)
	if settings.EmailFrom != "" {
		if _, err := mail.ParseAddress(settings.EmailFrom); err != nil {
			return ErrInvalidSender
		}
	}
	return s.store.UpdateSettings(ctx, settings)
}
