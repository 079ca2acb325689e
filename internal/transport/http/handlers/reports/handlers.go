package reportshandler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/auth"
	"hrms/internal/domain/reports"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *reports.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *reports.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/dashboard/employee", h.handleEmployeeDashboard)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Get("/dashboard/manager", h.handleManagerDashboard)
		r.With(middleware.RequireAnyPermission(h.Perms, auth.PermReportsManage, auth.PermSystemAdmin)).Get("/jobs", h.handleJobs)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(auth.PermReportsManage, h.Perms))
			r.Get("/dashboard/hr", h.handleHRDashboard)
			r.Get("/attendance", h.handleAttendance)
			r.Get("/leave", h.handleLeave)
			r.Get("/headcount", h.handleHeadcount)
		})
	})
}

func (h *Handler) handleEmployeeDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	dash, err := h.Service.EmployeeDashboard(r.Context(), user.EmployeeID, user.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, dash, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleManagerDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	dash, err := h.Service.ManagerDashboard(r.Context(), user.EmployeeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, dash, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHRDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.Service.HRDashboard(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, dash, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAttendance(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	month := shared.Day(time.Now())
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := shared.ParseMonth(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_filter", err.Error(), reqID)
			return
		}
		month = parsed
	}
	departmentID, err := shared.QueryID(r, "departmentId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "invalid departmentId", reqID)
		return
	}
	rows, err := h.Service.AttendanceReport(r.Context(), month, departmentID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		var buf bytes.Buffer
		if err := reports.WriteAttendanceCSV(&buf, rows); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="attendance-`+month.Format("2006-01")+`.csv"`)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(buf.Bytes()); err != nil {
			slog.Warn("attendance csv write failed", "err", err, "request_id", reqID)
		}
		return
	}
	api.Success(w, rows, reqID)
}

func (h *Handler) handleLeave(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	defaultFrom := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	fromRaw := r.URL.Query().Get("from")
	if fromRaw == "" {
		fromRaw = defaultFrom.Format("2006-01-02")
	}
	from, to, err := shared.DateRange(fromRaw, r.URL.Query().Get("to"), 1, now)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	report, err := h.Service.LeaveReport(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHeadcount(w http.ResponseWriter, r *http.Request) {
	hc, err := h.Service.Headcount(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, hc, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			api.Fail(w, http.StatusBadRequest, "invalid_filter", "limit must be between 1 and 200", middleware.GetRequestID(r.Context()))
			return
		}
		limit = parsed
	}
	runs, err := h.Service.JobRuns(r.Context(), strings.TrimSpace(r.URL.Query().Get("type")), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, reports.ErrNoEmployee):
		api.Fail(w, http.StatusNotFound, "not_found", "no employee profile linked to this user", reqID)
	case errors.Is(err, reports.ErrInvalidPeriod):
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), reqID)
	default:
		slog.Error("report failed", "err", err, "request_id", reqID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to build report", reqID)
	}
}
