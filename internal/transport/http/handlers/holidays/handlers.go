package holidayshandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/domain/holidays"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *holidays.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *holidays.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

type holidayPayload struct {
	Date     string `json:"date" validate:"required"`
	Name     string `json:"name" validate:"required,max=120"`
	Optional bool   `json:"optional"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/holidays", func(r chi.Router) {
		r.With(middleware.RequireAuth).Get("/", h.handleList)
		r.With(middleware.RequireAuth).Get("/upcoming", h.handleUpcoming)
		r.With(middleware.RequirePermission(auth.PermHolidaysWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermHolidaysWrite, h.Perms)).Delete("/{holidayID}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1900 || parsed > 9999 {
			api.Fail(w, http.StatusBadRequest, "invalid_filter", "year must be a four digit number", middleware.GetRequestID(r.Context()))
			return
		}
		year = parsed
	}
	items, err := h.Service.ListYear(r.Context(), year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holiday_list_failed", "failed to list holidays", middleware.GetRequestID(r.Context()))
		return
	}
	if items == nil {
		items = []holidays.Holiday{}
	}
	shared.SetTotal(w, len(items))
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 5, 50)
	items, err := h.Service.Upcoming(r.Context(), page.Limit)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "holiday_list_failed", "failed to list holidays", middleware.GetRequestID(r.Context()))
		return
	}
	if items == nil {
		items = []holidays.Holiday{}
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload holidayPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	day, _ := validator.Date("date", payload.Date)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.Create(r.Context(), holidays.Holiday{Date: day, Name: payload.Name, Optional: payload.Optional})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "holiday.create", "holiday", strconv.FormatInt(created.ID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, created); err != nil {
		slog.Warn("audit holiday create failed", "err", err)
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, err := shared.PathID(r, "holidayID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid holiday id", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "holiday.delete", "holiday", strconv.FormatInt(id, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit holiday delete failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, holidays.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, holidays.ErrDuplicate):
		api.Fail(w, http.StatusConflict, "duplicate_holiday", err.Error(), reqID)
	case errors.Is(err, holidays.ErrInvalidName), errors.Is(err, holidays.ErrInvalidDate):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_field", err.Error(), reqID)
	default:
		slog.Error("holiday request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "holiday_failed", "holiday request failed", reqID)
	}
}
