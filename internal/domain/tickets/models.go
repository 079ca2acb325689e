package tickets

import (
	"errors"
	"time"
)

const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var (
	ErrNotFound          = errors.New("ticket not found")
	ErrForbidden         = errors.New("not allowed to access this ticket")
	ErrClosed            = errors.New("closed tickets cannot change")
	ErrInvalidTransition = errors.New("ticket status transition not allowed")
	ErrInvalidPriority   = errors.New("priority must be low, medium, high or urgent")
	ErrInvalidAssignee   = errors.New("assignee not found or inactive")
	ErrEmptyComment      = errors.New("comment body is required")
	ErrEmptyField        = errors.New("subject and description are required")
)

// transitions lists the statuses reachable from each status.
var transitions = map[string][]string{
	StatusOpen:       {StatusInProgress, StatusResolved},
	StatusInProgress: {StatusResolved},
	StatusResolved:   {StatusClosed, StatusInProgress},
	StatusClosed:     {},
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

type Ticket struct {
	ID            int64      `json:"id"`
	Number        string     `json:"number"`
	Subject       string     `json:"subject"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Priority      string     `json:"priority"`
	Status        string     `json:"status"`
	RequesterID   int64      `json:"requesterId"`
	RequesterName string     `json:"requesterName"`
	AssigneeID    *int64     `json:"assigneeId,omitempty"`
	AssigneeName  string     `json:"assigneeName,omitempty"`
	ResolvedAt    *time.Time `json:"resolvedAt,omitempty"`
	ClosedAt      *time.Time `json:"closedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type Comment struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticketId"`
	AuthorID   int64     `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Filter narrows ticket listings. RequesterID zero means every requester.
type Filter struct {
	RequesterID int64
	AssigneeID  int64
	Status      string
	Priority    string
}

// Viewer is who is looking at a ticket; Staff sees everything.
type Viewer struct {
	UserID int64
	Staff  bool
}

func (v Viewer) CanSee(t Ticket) bool {
	if v.Staff || t.RequesterID == v.UserID {
		return true
	}
	return t.AssigneeID != nil && *t.AssigneeID == v.UserID
}
