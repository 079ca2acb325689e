package announcements

import (
	"errors"
	"time"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"

	AudienceAll        = "all"
	AudienceDepartment = "department"
)

var (
	ErrNotFound          = errors.New("announcement not found")
	ErrInvalidAudience   = errors.New("department audience requires departmentId")
	ErrInvalidWindow     = errors.New("expiresAt must be after publishAt")
	ErrInvalidState      = errors.New("announcement cannot transition from its current status")
	ErrArchived          = errors.New("archived announcements cannot be edited")
	ErrEmptyContent      = errors.New("title and body are required")
	ErrUnknownDepartment = errors.New("department not found")
)

type Announcement struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	Audience     string     `json:"audience"`
	DepartmentID *int64     `json:"departmentId,omitempty"`
	Pinned       bool       `json:"pinned"`
	PublishAt    *time.Time `json:"publishAt,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	Status       string     `json:"status"`
	NotifiedAt   *time.Time `json:"notifiedAt,omitempty"`
	CreatedBy    *int64     `json:"createdBy,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// VisibleAt reports whether a published announcement is live at now.
func (a Announcement) VisibleAt(now time.Time) bool {
	if a.Status != StatusPublished {
		return false
	}
	if a.PublishAt != nil && a.PublishAt.After(now) {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Filter narrows announcement listings. VisibleTo restricts the result to
// what a reader in DepartmentID sees at Now; otherwise Status applies.
type Filter struct {
	Status       string
	VisibleTo    bool
	DepartmentID *int64
	Now          time.Time
}

type ExpiryResult struct {
	Archived int64 `json:"archived"`
	Notified int64 `json:"notified"`
}
