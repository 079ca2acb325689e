package announcements

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"hrms/internal/platform/metrics"
)

type Notifier interface {
	Create(ctx context.Context, userID int64, ntype, title, body string) error
}

type Service struct {
	store    StoreAPI
	notifier Notifier
	Metrics  *metrics.Collector
	Now      func() time.Time
}

func NewService(store StoreAPI, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier, Now: time.Now}
}

func normalize(a *Announcement) error {
	a.Title = strings.TrimSpace(a.Title)
	a.Body = strings.TrimSpace(a.Body)
	if a.Title == "" || a.Body == "" {
		return ErrEmptyContent
	}
	if a.Audience == "" {
		a.Audience = AudienceAll
	}
	switch a.Audience {
	case AudienceAll:
		a.DepartmentID = nil
	case AudienceDepartment:
		if a.DepartmentID == nil || *a.DepartmentID <= 0 {
			return ErrInvalidAudience
		}
	default:
		return ErrInvalidAudience
	}
	if a.PublishAt != nil && a.ExpiresAt != nil && !a.ExpiresAt.After(*a.PublishAt) {
		return ErrInvalidWindow
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (Announcement, error) {
	return s.store.Get(ctx, id)
}

// Feed lists what an employee currently sees, pinned items first.
func (s *Service) Feed(ctx context.Context, employeeID int64, limit, offset int) ([]Announcement, int, error) {
	filter := Filter{VisibleTo: true, Now: s.Now().UTC()}
	if employeeID > 0 {
		departmentID, err := s.store.DepartmentOf(ctx, employeeID)
		if err != nil {
			return nil, 0, err
		}
		filter.DepartmentID = departmentID
	}
	return s.list(ctx, filter, limit, offset)
}

// List returns every announcement in the given status for managers of
// the feed.
func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]Announcement, int, error) {
	return s.list(ctx, Filter{Status: status}, limit, offset)
}

func (s *Service) list(ctx context.Context, filter Filter, limit, offset int) ([]Announcement, int, error) {
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) Create(ctx context.Context, actorID int64, a Announcement) (Announcement, error) {
	if err := normalize(&a); err != nil {
		return Announcement{}, err
	}
	a.Status = StatusDraft
	if actorID > 0 {
		a.CreatedBy = &actorID
	}
	id, err := s.store.Create(ctx, a)
	if err != nil {
		return Announcement{}, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, a Announcement) (Announcement, Announcement, error) {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return Announcement{}, Announcement{}, err
	}
	if before.Status == StatusArchived {
		return Announcement{}, Announcement{}, ErrArchived
	}
	if err := normalize(&a); err != nil {
		return Announcement{}, Announcement{}, err
	}
	a.ID = id
	if err := s.store.Update(ctx, a); err != nil {
		return Announcement{}, Announcement{}, err
	}
	after, err := s.store.Get(ctx, id)
	return before, after, err
}

// Publish makes a draft live. The audience is notified now unless publishAt
// lies in the future, in which case the scheduled job notifies it later.
func (s *Service) Publish(ctx context.Context, id int64) (Announcement, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	now := s.Now()
	if current.ExpiresAt != nil && !current.ExpiresAt.After(now) {
		return Announcement{}, ErrInvalidWindow
	}
	if err := s.store.SetStatus(ctx, id, []string{StatusDraft}, StatusPublished); err != nil {
		return Announcement{}, err
	}
	published, err := s.store.Get(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	s.Metrics.Event("announcement_published")
	if published.VisibleAt(now) {
		s.notifyOnce(ctx, published)
	}
	return published, nil
}

// notifyOnce claims the announcement's notification before fanning out so
// a concurrent job run cannot notify the audience twice.
func (s *Service) notifyOnce(ctx context.Context, a Announcement) bool {
	if s.notifier == nil {
		return false
	}
	claimed, err := s.store.MarkNotified(ctx, a.ID)
	if err != nil {
		slog.Warn("announcement notification claim failed", "announcementId", a.ID, "err", err)
		return false
	}
	if !claimed {
		return false
	}
	s.notifyAudience(ctx, a)
	return true
}

func (s *Service) notifyAudience(ctx context.Context, a Announcement) {
	if s.notifier == nil {
		return
	}
	var departmentID *int64
	if a.Audience == AudienceDepartment {
		departmentID = a.DepartmentID
	}
	userIDs, err := s.store.AudienceUserIDs(ctx, departmentID)
	if err != nil {
		slog.Warn("announcement audience lookup failed", "announcementId", a.ID, "err", err)
		return
	}
	for _, userID := range userIDs {
		if err := s.notifier.Create(ctx, userID, "announcement_published", a.Title, a.Body); err != nil {
			slog.Warn("announcement notification failed", "announcementId", a.ID, "userId", userID, "err", err)
		}
	}
}

func (s *Service) Archive(ctx context.Context, id int64) (Announcement, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return Announcement{}, err
	}
	if err := s.store.SetStatus(ctx, id, []string{StatusDraft, StatusPublished}, StatusArchived); err != nil {
		return Announcement{}, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) (Announcement, error) {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	return before, s.store.Delete(ctx, id)
}

// ExpireDue archives published announcements whose expiry has passed and
// notifies the audiences of scheduled announcements that have gone live.
func (s *Service) ExpireDue(ctx context.Context) (ExpiryResult, error) {
	now := s.Now().UTC()
	archived, err := s.store.ArchiveExpired(ctx, now)
	if err != nil {
		return ExpiryResult{}, err
	}
	if archived > 0 {
		slog.Info("announcements expired", "count", archived)
	}
	result := ExpiryResult{Archived: archived}
	if s.notifier == nil {
		return result, nil
	}
	due, err := s.store.DueNotifications(ctx, now)
	if err != nil {
		return result, err
	}
	for _, a := range due {
		if s.notifyOnce(ctx, a) {
			result.Notified++
		}
	}
	if result.Notified > 0 {
		slog.Info("scheduled announcements delivered", "count", result.Notified)
	}
	return result, nil
}
