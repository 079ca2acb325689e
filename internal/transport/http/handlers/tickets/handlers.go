package ticketshandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/domain/tickets"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *tickets.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *tickets.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

type ticketPayload struct {
	Subject     string `json:"subject" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
	Category    string `json:"category" validate:"max=60"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

type commentPayload struct {
	Body string `json:"body" validate:"required,max=5000"`
}

type assignPayload struct {
	AssigneeID int64 `json:"assigneeId" validate:"required,gt=0"`
}

type statusPayload struct {
	Status string `json:"status" validate:"required,oneof=open in_progress resolved closed"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	write := middleware.RequirePermission(auth.PermTicketsWrite, h.Perms)

	r.Route("/tickets", func(r chi.Router) {
		r.With(write).Get("/", h.handleList)
		r.With(write).Post("/", h.handleCreate)
		r.With(write).Get("/{ticketID}", h.handleGet)
		r.With(write).Post("/{ticketID}/comments", h.handleComment)
		r.With(middleware.RequirePermission(auth.PermTicketsManage, h.Perms)).Post("/{ticketID}/assign", h.handleAssign)
		r.With(write).Post("/{ticketID}/status", h.handleStatus)
	})
}

// viewer resolves the caller and whether they may see every ticket.
func (h *Handler) viewer(w http.ResponseWriter, r *http.Request) (tickets.Viewer, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return tickets.Viewer{}, false
	}
	staff, err := middleware.Can(r.Context(), h.Perms, auth.PermTicketsManage)
	if err != nil {
		slog.Warn("ticket permission check failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", middleware.GetRequestID(r.Context()))
		return tickets.Viewer{}, false
	}
	return tickets.Viewer{UserID: user.UserID, Staff: staff}, true
}

func (h *Handler) record(r *http.Request, actorID int64, action string, id int64, before, after any) {
	if err := h.Audit.Record(r.Context(), actorID, action, "ticket", strconv.FormatInt(id, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit ticket failed", "action", action, "err", err)
	}
}

func ticketID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := shared.PathID(r, "ticketID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid ticket id", middleware.GetRequestID(r.Context()))
		return 0, false
	}
	return id, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	filter := tickets.Filter{Status: query.Get("status"), Priority: query.Get("priority")}
	if filter.Status != "" && !tickets.ValidStatus(filter.Status) {
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "invalid status", middleware.GetRequestID(r.Context()))
		return
	}
	if filter.Priority != "" && !tickets.ValidPriority(filter.Priority) {
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "invalid priority", middleware.GetRequestID(r.Context()))
		return
	}
	if query.Get("mine") == "true" {
		filter.RequesterID = viewer.UserID
	}
	if query.Get("assigned") == "me" {
		filter.AssigneeID = viewer.UserID
	}
	page := shared.ParsePagination(r, 50, 200)
	items, total, err := h.Service.List(r.Context(), viewer, filter, page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []tickets.Ticket{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	var payload ticketPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	created, err := h.Service.Create(r.Context(), viewer.UserID, tickets.Ticket{
		Subject:     payload.Subject,
		Description: payload.Description,
		Category:    payload.Category,
		Priority:    payload.Priority,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, viewer.UserID, "ticket.create", created.ID, nil, created)
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	id, ok := ticketID(w, r)
	if !ok {
		return
	}
	ticket, comments, err := h.Service.Get(r.Context(), viewer, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if comments == nil {
		comments = []tickets.Comment{}
	}
	api.Success(w, map[string]any{"ticket": ticket, "comments": comments}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleComment(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	id, ok := ticketID(w, r)
	if !ok {
		return
	}
	var payload commentPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	comment, err := h.Service.Comment(r.Context(), viewer, id, payload.Body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, viewer.UserID, "ticket.comment", id, nil, comment)
	api.Created(w, comment, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	id, ok := ticketID(w, r)
	if !ok {
		return
	}
	var payload assignPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	before, after, err := h.Service.Assign(r.Context(), id, payload.AssigneeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, viewer.UserID, "ticket.assign", id, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	id, ok := ticketID(w, r)
	if !ok {
		return
	}
	var payload statusPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	before, after, err := h.Service.ChangeStatus(r.Context(), viewer, id, payload.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, viewer.UserID, "ticket.status", id, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, tickets.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, tickets.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), reqID)
	case errors.Is(err, tickets.ErrClosed), errors.Is(err, tickets.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), reqID)
	case errors.Is(err, tickets.ErrInvalidPriority), errors.Is(err, tickets.ErrInvalidAssignee),
		errors.Is(err, tickets.ErrEmptyComment), errors.Is(err, tickets.ErrEmptyField):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_field", err.Error(), reqID)
	default:
		slog.Error("ticket request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "ticket_failed", "ticket request failed", reqID)
	}
}
