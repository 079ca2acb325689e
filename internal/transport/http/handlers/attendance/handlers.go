package attendancehandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/attendance"
	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/domain/employees"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service   *attendance.Service
	Employees *employees.Service
	Perms     middleware.PermissionStore
	Audit     *audit.Service
}

func NewHandler(service *attendance.Service, employeesSvc *employees.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Employees: employeesSvc, Perms: perms, Audit: auditSvc}
}

type checkInPayload struct {
	WorkMode string `json:"workMode" validate:"omitempty,oneof=office wfh field OFFICE WFH FIELD"`
	Location string `json:"location" validate:"max=200"`
	Note     string `json:"note" validate:"max=500"`
}

type checkOutPayload struct {
	Note string `json:"note" validate:"max=500"`
}

type markPayload struct {
	EmployeeID int64  `json:"employeeId" validate:"required,gt=0"`
	Date       string `json:"date" validate:"required"`
	Status     string `json:"status" validate:"required,oneof=present late half_day absent on_leave"`
	WorkMode   string `json:"workMode" validate:"omitempty,oneof=office wfh field"`
	CheckInAt  string `json:"checkInAt" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	CheckOutAt string `json:"checkOutAt" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Note       string `json:"note" validate:"max=500"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	self := middleware.RequirePermission(auth.PermAttendanceSelf, h.Perms)
	r.Route("/attendance", func(r chi.Router) {
		r.With(self).Post("/checkin", h.handleCheckIn)
		r.With(self).Post("/checkout", h.handleCheckOut)
		r.With(self).Get("/me", h.handleMine)
		r.With(self).Get("/today", h.handleToday)
		r.With(self).Get("/summary", h.handleSummary)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermAttendanceManage, h.Perms)).Post("/mark", h.handleMark)
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

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	user, ok := requireEmployee(w, r)
	if !ok {
		return
	}
	var payload checkInPayload
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

	rec, created, err := h.Service.CheckIn(r.Context(), user.EmployeeID, attendance.CheckInInput{
		WorkMode: payload.WorkMode,
		Location: payload.Location,
		Note:     payload.Note,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !created {
		api.Success(w, rec, middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "attendance.checkin", "attendance", strconv.FormatInt(rec.ID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, rec); err != nil {
		slog.Warn("audit attendance checkin failed", "err", err)
	}
	api.Created(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	user, ok := requireEmployee(w, r)
	if !ok {
		return
	}
	var payload checkOutPayload
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
	}
	rec, err := h.Service.CheckOut(r.Context(), user.EmployeeID, payload.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "attendance.checkout", "attendance", strconv.FormatInt(rec.ID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, rec); err != nil {
		slog.Warn("audit attendance checkout failed", "err", err)
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	user, ok := requireEmployee(w, r)
	if !ok {
		return
	}
	today, err := h.Service.Today(r.Context(), user.EmployeeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, today, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	user, ok := requireEmployee(w, r)
	if !ok {
		return
	}
	from, to, err := shared.DateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"), 31, time.Now())
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	items, total, err := h.Service.List(r.Context(), attendance.Filter{EmployeeID: user.EmployeeID, From: from, To: to}, page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []attendance.Record{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	query := r.URL.Query()
	employeeID, err := shared.QueryID(r, "employeeId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "invalid employeeId", middleware.GetRequestID(r.Context()))
		return
	}
	filter := attendance.Filter{EmployeeID: employeeID}
	if raw := query.Get("date"); raw != "" {
		day, err := shared.ParseDate(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_filter", "date must be YYYY-MM-DD", middleware.GetRequestID(r.Context()))
			return
		}
		filter.From, filter.To = shared.Day(day), shared.Day(day)
	} else {
		from, to, err := shared.DateRange(query.Get("from"), query.Get("to"), 1, time.Now())
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
		filter.From, filter.To = from, to
	}
	if !auth.IsPrivileged(user.RoleName) {
		filter.TeamOf = user.EmployeeID
		if !user.HasEmployee() {
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
			return
		}
	}

	page := shared.ParsePagination(r, 100, 500)
	items, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []attendance.Record{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID, err := shared.QueryID(r, "employeeId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "invalid employeeId", middleware.GetRequestID(r.Context()))
		return
	}
	if employeeID == 0 {
		employeeID = user.EmployeeID
	}
	if employeeID == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "employeeId is required", middleware.GetRequestID(r.Context()))
		return
	}
	allowed, err := h.Employees.CanView(r.Context(), user, employeeID)
	if err != nil {
		slog.Warn("attendance scope check failed", "err", err)
	}
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	month := time.Now().UTC()
	if raw := r.URL.Query().Get("month"); raw != "" {
		month, err = shared.ParseMonth(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_filter", err.Error(), middleware.GetRequestID(r.Context()))
			return
		}
	}
	summary, err := h.Service.Summary(r.Context(), employeeID, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMark(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload markPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	day, _ := validator.Date("date", payload.Date)
	in := attendance.MarkInput{
		EmployeeID: payload.EmployeeID,
		Date:       day,
		Status:     payload.Status,
		WorkMode:   payload.WorkMode,
		Note:       payload.Note,
	}
	if payload.CheckInAt != "" {
		if parsed, err := time.Parse(time.RFC3339, payload.CheckInAt); err == nil {
			in.CheckInAt = &parsed
		}
	}
	if payload.CheckOutAt != "" {
		if parsed, err := time.Parse(time.RFC3339, payload.CheckOutAt); err == nil {
			in.CheckOutAt = &parsed
		}
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	rec, err := h.Service.Mark(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "attendance.mark", "attendance", strconv.FormatInt(rec.ID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, rec); err != nil {
		slog.Warn("audit attendance mark failed", "err", err)
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, attendance.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, attendance.ErrNotCheckedIn):
		api.Fail(w, http.StatusConflict, "not_checked_in", err.Error(), reqID)
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		api.Fail(w, http.StatusConflict, "already_checked_out", err.Error(), reqID)
	case errors.Is(err, attendance.ErrCheckInInProgress):
		api.Fail(w, http.StatusConflict, "checkin_in_progress", err.Error(), reqID)
	case errors.Is(err, attendance.ErrInvalidWorkMode), errors.Is(err, attendance.ErrInvalidStatus), errors.Is(err, attendance.ErrInvalidTimes):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_field", err.Error(), reqID)
	default:
		slog.Error("attendance request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "attendance_failed", "attendance request failed", reqID)
	}
}
