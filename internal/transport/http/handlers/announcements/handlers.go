package announcementshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/announcements"
	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *announcements.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *announcements.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

type announcementPayload struct {
	Title        string `json:"title" validate:"required,max=200"`
	Body         string `json:"body" validate:"required,max=10000"`
	Audience     string `json:"audience" validate:"omitempty,oneof=all department"`
	DepartmentID *int64 `json:"departmentId" validate:"omitempty,gt=0"`
	Pinned       bool   `json:"pinned"`
	PublishAt    string `json:"publishAt"`
	ExpiresAt    string `json:"expiresAt"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermAnnouncementsRead, h.Perms)
	manage := middleware.RequirePermission(auth.PermAnnouncementsManage, h.Perms)

	r.Route("/announcements", func(r chi.Router) {
		r.With(read).Get("/", h.handleFeed)
		r.With(manage).Get("/all", h.handleListAll)
		r.With(manage).Post("/", h.handleCreate)
		r.With(read).Get("/{announcementID}", h.handleGet)
		r.With(manage).Put("/{announcementID}", h.handleUpdate)
		r.With(manage).Post("/{announcementID}/publish", h.handlePublish)
		r.With(manage).Post("/{announcementID}/archive", h.handleArchive)
		r.With(manage).Delete("/{announcementID}", h.handleDelete)
	})
}

func (h *Handler) record(r *http.Request, actorID int64, action string, id int64, before, after any) {
	if err := h.Audit.Record(r.Context(), actorID, action, "announcement", strconv.FormatInt(id, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit announcement failed", "action", action, "err", err)
	}
}

func announcementID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := shared.PathID(r, "announcementID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid announcement id", middleware.GetRequestID(r.Context()))
		return 0, false
	}
	return id, true
}

func decodeAnnouncement(w http.ResponseWriter, r *http.Request) (announcements.Announcement, bool) {
	var payload announcementPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return announcements.Announcement{}, false
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if payload.Audience == announcements.AudienceDepartment && payload.DepartmentID == nil {
		validator.Add("departmentId", "required for department audience")
	}
	var publishAt, expiresAt *time.Time
	if payload.PublishAt != "" {
		if parsed, ok := validator.Date("publishAt", payload.PublishAt); ok {
			publishAt = &parsed
		}
	}
	if payload.ExpiresAt != "" {
		if parsed, ok := validator.Date("expiresAt", payload.ExpiresAt); ok {
			expiresAt = &parsed
		}
	}
	if publishAt != nil && expiresAt != nil && !expiresAt.After(*publishAt) {
		validator.Add("expiresAt", "must be after publishAt")
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return announcements.Announcement{}, false
	}
	return announcements.Announcement{
		Title:        payload.Title,
		Body:         payload.Body,
		Audience:     payload.Audience,
		DepartmentID: payload.DepartmentID,
		Pinned:       payload.Pinned,
		PublishAt:    publishAt,
		ExpiresAt:    expiresAt,
	}, true
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	items, total, err := h.Service.Feed(r.Context(), user.EmployeeID, page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []announcements.Announcement{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", announcements.StatusDraft, announcements.StatusPublished, announcements.StatusArchived:
	default:
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "invalid status", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	items, total, err := h.Service.List(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []announcements.Announcement{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

// handleGet hides announcements a plain reader could not see in the feed.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUser(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := announcementID(w, r)
	if !ok {
		return
	}
	item, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !item.VisibleAt(time.Now()) {
		manager, err := middleware.Can(r.Context(), h.Perms, auth.PermAnnouncementsManage)
		if err != nil || !manager {
			api.Fail(w, http.StatusNotFound, "not_found", announcements.ErrNotFound.Error(), middleware.GetRequestID(r.Context()))
			return
		}
	}
	api.Success(w, item, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	in, ok := decodeAnnouncement(w, r)
	if !ok {
		return
	}
	created, err := h.Service.Create(r.Context(), user.UserID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "announcement.create", created.ID, nil, created)
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := announcementID(w, r)
	if !ok {
		return
	}
	in, ok := decodeAnnouncement(w, r)
	if !ok {
		return
	}
	before, after, err := h.Service.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "announcement.update", id, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "announcement.publish", h.Service.Publish)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "announcement.archive", h.Service.Archive)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "announcement.delete", h.Service.Delete)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string, fn func(ctx context.Context, id int64) (announcements.Announcement, error)) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := announcementID(w, r)
	if !ok {
		return
	}
	item, err := fn(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if action == "announcement.delete" {
		h.record(r, user.UserID, action, id, item, nil)
		api.Success(w, map[string]any{"deleted": true}, middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, user.UserID, action, id, nil, item)
	api.Success(w, item, middleware.GetRequestID(r.Context()))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, announcements.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, announcements.ErrInvalidState), errors.Is(err, announcements.ErrArchived):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), reqID)
	case errors.Is(err, announcements.ErrInvalidAudience), errors.Is(err, announcements.ErrInvalidWindow),
		errors.Is(err, announcements.ErrEmptyContent), errors.Is(err, announcements.ErrUnknownDepartment):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_field", err.Error(), reqID)
	default:
		slog.Error("announcement request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "announcement_failed", "announcement request failed", reqID)
	}
}
