package timesheetshandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/domain/timesheets"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *timesheets.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *timesheets.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

type entryPayload struct {
	Date        string  `json:"date" validate:"required"`
	ProjectID   *int64  `json:"projectId" validate:"omitempty,gt=0"`
	Hours       float64 `json:"hours" validate:"gt=0,lte=24"`
	Description string  `json:"description" validate:"required,max=2000"`
}

type weekPayload struct {
	WeekStart  string `json:"weekStart" validate:"required"`
	EmployeeID int64  `json:"employeeId" validate:"omitempty,gt=0"`
}

type reviewPayload struct {
	Note string `json:"note" validate:"max=1000"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	write := middleware.RequirePermission(auth.PermTimesheetWrite, h.Perms)
	approve := middleware.RequirePermission(auth.PermTimesheetApprove, h.Perms)

	r.Route("/timesheets", func(r chi.Router) {
		r.With(write).Get("/me", h.handleMine)
		r.With(write).Post("/", h.handleCreate)
		r.With(write).Put("/{entryID}", h.handleUpdate)
		r.With(write).Delete("/{entryID}", h.handleDelete)
		r.With(write).Post("/submit", h.handleSubmit)
		r.With(approve).Get("/pending", h.handlePending)
		r.With(approve).Post("/{entryID}/approve", h.handleApprove)
		r.With(approve).Post("/{entryID}/reject", h.handleReject)
		r.With(middleware.RequirePermission(auth.PermTimesheetLock, h.Perms)).Post("/lock", h.handleLock)
	})
}

func requireEmployee(w http.ResponseWriter, r *http.Request) (auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return auth.UserContext{}, false
	}
	if !user.HasEmployee() {
		api.Fail(w, http.StatusForbidden, "employee_required", "an employee profile is required", middleware.GetRequestID(r.Context()))
		return auth.UserContext{}, false
	}
	return user, true
}

func (h *Handler) record(r *http.Request, actorID int64, action string, id int64, before, after any) {
	if err := h.Audit.Record(r.Context(), actorID, action, "timesheet_entry", strconv.FormatInt(id, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit timesheet failed", "action", action, "err", err)
	}
}

func decodeEntry(w http.ResponseWriter, r *http.Request) (timesheets.EntryInput, bool) {
	var payload entryPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return timesheets.EntryInput{}, false
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	day, _ := validator.Date("date", payload.Date)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return timesheets.EntryInput{}, false
	}
	return timesheets.EntryInput{
		WorkDate:    day,
		ProjectID:   payload.ProjectID,
		Hours:       payload.Hours,
		Description: payload.Description,
	}, true
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	user, ok := requireEmployee(w, r)
	if !ok {
		return
	}
	from, to, err := shared.DateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"), 14, time.Now())
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	items, total, err := h.Service.List(r.Context(), timesheets.Filter{EmployeeID: user.EmployeeID, From: from, To: to}, page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []timesheets.Entry{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := requireEmployee(w, r)
	if !ok {
		return
	}
	in, ok := decodeEntry(w, r)
	if !ok {
		return
	}
	entry, err := h.Service.Create(r.Context(), user.EmployeeID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "timesheet.create", entry.ID, nil, entry)
	api.Created(w, entry, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := requireEmployee(w, r)
	if !ok {
		return
	}
	id, err := shared.PathID(r, "entryID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid timesheet entry id", middleware.GetRequestID(r.Context()))
		return
	}
	in, ok := decodeEntry(w, r)
	if !ok {
		return
	}
	before, after, err := h.Service.Update(r.Context(), user.EmployeeID, id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "timesheet.update", id, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := requireEmployee(w, r)
	if !ok {
		return
	}
	id, err := shared.PathID(r, "entryID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid timesheet entry id", middleware.GetRequestID(r.Context()))
		return
	}
	before, err := h.Service.Delete(r.Context(), user.EmployeeID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "timesheet.delete", id, before, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func decodeWeek(w http.ResponseWriter, r *http.Request) (weekPayload, time.Time, bool) {
	var payload weekPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return payload, time.Time{}, false
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	weekStart, _ := validator.Date("weekStart", payload.WeekStart)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return payload, time.Time{}, false
	}
	return payload, weekStart, true
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := requireEmployee(w, r)
	if !ok {
		return
	}
	_, weekStart, ok := decodeWeek(w, r)
	if !ok {
		return
	}
	count, err := h.Service.Submit(r.Context(), user.EmployeeID, weekStart)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	week := timesheets.WeekOf(weekStart).Format("2006-01-02")
	h.record(r, user.UserID, "timesheet.submit", user.EmployeeID, nil, map[string]any{"weekStart": week, "entries": count})
	api.Success(w, map[string]any{"weekStart": week, "submitted": count}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	filter := timesheets.Filter{Status: timesheets.StatusSubmitted}
	if !auth.IsPrivileged(user.RoleName) {
		if !user.HasEmployee() {
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
			return
		}
		filter.TeamOf = user.EmployeeID
	}
	page := shared.ParsePagination(r, 100, 500)
	items, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []timesheets.Entry{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, true)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, false)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, approve bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, err := shared.PathID(r, "entryID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid timesheet entry id", middleware.GetRequestID(r.Context()))
		return
	}
	var payload reviewPayload
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	before, after, err := h.Service.Review(r.Context(), user, id, approve, payload.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	action := "timesheet.approve"
	if !approve {
		action = "timesheet.reject"
	}
	h.record(r, user.UserID, action, id, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	payload, weekStart, ok := decodeWeek(w, r)
	if !ok {
		return
	}
	count, err := h.Service.Lock(r.Context(), weekStart, payload.EmployeeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	week := timesheets.WeekOf(weekStart).Format("2006-01-02")
	h.record(r, user.UserID, "timesheet.lock", payload.EmployeeID, nil, map[string]any{"weekStart": week, "entries": count})
	api.Success(w, map[string]any{"weekStart": week, "locked": count}, middleware.GetRequestID(r.Context()))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, timesheets.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, timesheets.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), reqID)
	case errors.Is(err, timesheets.ErrNotEditable):
		api.Fail(w, http.StatusConflict, "not_editable", err.Error(), reqID)
	case errors.Is(err, timesheets.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), reqID)
	case errors.Is(err, timesheets.ErrNothingToSubmit):
		api.Fail(w, http.StatusConflict, "nothing_to_submit", err.Error(), reqID)
	case errors.Is(err, timesheets.ErrDailyLimit):
		api.Fail(w, http.StatusUnprocessableEntity, "daily_limit_exceeded", err.Error(), reqID)
	case errors.Is(err, timesheets.ErrInvalidHours), errors.Is(err, timesheets.ErrInvalidProject), errors.Is(err, timesheets.ErrEmptyDescription):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_field", err.Error(), reqID)
	default:
		slog.Error("timesheet request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "timesheet_failed", "timesheet request failed", reqID)
	}
}
