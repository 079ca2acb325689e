package workupdateshandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/domain/workupdates"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *workupdates.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *workupdates.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

type updatePayload struct {
	Date            string `json:"date"`
	Summary         string `json:"summary" validate:"required,max=4000"`
	Blockers        string `json:"blockers" validate:"max=2000"`
	PlannedTomorrow string `json:"plannedTomorrow" validate:"max=2000"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	write := middleware.RequirePermission(auth.PermWorkUpdatesWrite, h.Perms)
	r.Route("/work-updates", func(r chi.Router) {
		r.With(write).Get("/me", h.handleMine)
		r.With(write).Post("/", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermWorkUpdatesRead, h.Perms)).Get("/", h.handleList)
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if !user.HasEmployee() {
		api.Fail(w, http.StatusForbidden, "employee_required", "an employee profile is required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload updatePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	var day time.Time
	if payload.Date != "" {
		day, _ = validator.Date("date", payload.Date)
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	update, created, err := h.Service.Submit(r.Context(), user.EmployeeID, workupdates.Input{
		WorkDate:        day,
		Summary:         payload.Summary,
		Blockers:        payload.Blockers,
		PlannedTomorrow: payload.PlannedTomorrow,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	action := "workupdate.update"
	if created {
		action = "workupdate.create"
	}
	if err := h.Audit.Record(r.Context(), user.UserID, action, "work_update", strconv.FormatInt(update.ID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, update); err != nil {
		slog.Warn("audit work update failed", "err", err)
	}
	if created {
		api.Created(w, update, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, update, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	from, to, err := shared.DateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"), 14, time.Now())
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	h.list(w, r, workupdates.Filter{EmployeeID: user.EmployeeID, From: from, To: to})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	day := shared.Day(time.Now())
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := shared.ParseDate(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_filter", "date must be YYYY-MM-DD", middleware.GetRequestID(r.Context()))
			return
		}
		day = shared.Day(parsed)
	}
	filter := workupdates.Filter{From: day, To: day}
	if !auth.IsPrivileged(user.RoleName) {
		if !user.HasEmployee() {
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
			return
		}
		filter.TeamOf = user.EmployeeID
	}
	h.list(w, r, filter)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter workupdates.Filter) {
	page := shared.ParsePagination(r, 100, 500)
	items, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []workupdates.Update{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, workupdates.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, workupdates.ErrUpdateClosed):
		api.Fail(w, http.StatusConflict, "update_closed", err.Error(), reqID)
	case errors.Is(err, workupdates.ErrFutureDate), errors.Is(err, workupdates.ErrEmptySummary):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_field", err.Error(), reqID)
	default:
		slog.Error("work update request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "work_update_failed", "work update request failed", reqID)
	}
}
