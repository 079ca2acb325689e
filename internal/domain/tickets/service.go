package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"hrms/internal/platform/metrics"
)

type Notifier interface {
	Create(ctx context.Context, userID int64, ntype, title, body string) error
}

type Service struct {
	store     StoreAPI
	notifier  Notifier
	Metrics   *metrics.Collector
	NewNumber func() string
}

func NewService(store StoreAPI, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier, NewNumber: generateNumber}
}

func generateNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TCK-" + strings.ToUpper(id[:10])
}

func (s *Service) Create(ctx context.Context, requesterID int64, t Ticket) (Ticket, error) {
	t.Subject = strings.TrimSpace(t.Subject)
	t.Description = strings.TrimSpace(t.Description)
	if t.Subject == "" || t.Description == "" {
		return Ticket{}, ErrEmptyField
	}
	t.Category = strings.ToLower(strings.TrimSpace(t.Category))
	if t.Category == "" {
		t.Category = "general"
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !ValidPriority(t.Priority) {
		return Ticket{}, ErrInvalidPriority
	}
	t.Status = StatusOpen
	t.RequesterID = requesterID
	t.Number = s.NewNumber()
	id, err := s.store.Create(ctx, t)
	if err != nil {
		return Ticket{}, err
	}
	s.Metrics.Event("ticket_created")
	return s.store.Get(ctx, id)
}

// List scopes non-staff viewers to their own tickets.
func (s *Service) List(ctx context.Context, viewer Viewer, filter Filter, limit, offset int) ([]Ticket, int, error) {
	if !viewer.Staff {
		filter.RequesterID = viewer.UserID
	}
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

func (s *Service) Get(ctx context.Context, viewer Viewer, id int64) (Ticket, []Comment, error) {
	t, err := s.visible(ctx, viewer, id)
	if err != nil {
		return Ticket{}, nil, err
	}
	comments, err := s.store.Comments(ctx, id)
	if err != nil {
		return Ticket{}, nil, err
	}
	return t, comments, nil
}

// visible hides tickets from viewers who may not see them.
func (s *Service) visible(ctx context.Context, viewer Viewer, id int64) (Ticket, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	if !viewer.CanSee(t) {
		return Ticket{}, ErrNotFound
	}
	return t, nil
}

func (s *Service) Comment(ctx context.Context, viewer Viewer, id int64, body string) (Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Comment{}, ErrEmptyComment
	}
	t, err := s.visible(ctx, viewer, id)
	if err != nil {
		return Comment{}, err
	}
	if t.Status == StatusClosed {
		return Comment{}, ErrClosed
	}
	commentID, err := s.store.AddComment(ctx, id, viewer.UserID, body)
	if err != nil {
		return Comment{}, err
	}
	if viewer.UserID != t.RequesterID {
		s.notify(ctx, t.RequesterID, t, "New reply on "+t.Number, body)
	} else if t.AssigneeID != nil {
		s.notify(ctx, *t.AssigneeID, t, "Requester replied on "+t.Number, body)
	}
	return Comment{ID: commentID, TicketID: id, AuthorID: viewer.UserID, Body: body}, nil
}

func (s *Service) Assign(ctx context.Context, id, assigneeID int64) (Ticket, Ticket, error) {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return Ticket{}, Ticket{}, err
	}
	if before.Status == StatusClosed {
		return Ticket{}, Ticket{}, ErrClosed
	}
	active, err := s.store.ActiveUser(ctx, assigneeID)
	if err != nil {
		return Ticket{}, Ticket{}, err
	}
	if !active {
		return Ticket{}, Ticket{}, ErrInvalidAssignee
	}
	if err := s.store.Assign(ctx, id, assigneeID); err != nil {
		return Ticket{}, Ticket{}, err
	}
	after, err := s.store.Get(ctx, id)
	if err != nil {
		return Ticket{}, Ticket{}, err
	}
	s.notify(ctx, assigneeID, after, "Ticket assigned: "+after.Number, after.Subject)
	return before, after, nil
}

// ChangeStatus applies a workflow transition. Requesters may only close a
// resolved ticket or reopen it; staff may make any allowed move.
func (s *Service) ChangeStatus(ctx context.Context, viewer Viewer, id int64, to string) (Ticket, Ticket, error) {
	before, err := s.visible(ctx, viewer, id)
	if err != nil {
		return Ticket{}, Ticket{}, err
	}
	if before.Status == StatusClosed {
		return Ticket{}, Ticket{}, ErrClosed
	}
	if !CanTransition(before.Status, to) {
		return Ticket{}, Ticket{}, ErrInvalidTransition
	}
	if !viewer.Staff && before.Status != StatusResolved {
		return Ticket{}, Ticket{}, ErrForbidden
	}
	if err := s.store.SetStatus(ctx, id, before.Status, to); err != nil {
		return Ticket{}, Ticket{}, err
	}
	after, err := s.store.Get(ctx, id)
	if err != nil {
		return Ticket{}, Ticket{}, err
	}
	if viewer.UserID != after.RequesterID {
		s.notify(ctx, after.RequesterID, after, "Ticket "+after.Number+" updated",
			fmt.Sprintf("Status changed from %s to %s", before.Status, to))
	}
	return before, after, nil
}

func (s *Service) notify(ctx context.Context, userID int64, t Ticket, title, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Create(ctx, userID, "ticket_updated", title, body); err != nil {
		slog.Warn("ticket notification failed", "ticketId", t.ID, "userId", userID, "err", err)
	}
}
