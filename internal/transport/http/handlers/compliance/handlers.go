package compliancehandler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/auth"
	"hrms/internal/domain/compliance"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *compliance.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *compliance.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/compliance", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermComplianceRead, h.Perms))
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/trend", h.handleTrend)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	departmentID, err := shared.QueryID(r, "departmentId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "invalid departmentId", middleware.GetRequestID(r.Context()))
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
	dash, err := h.Service.Dashboard(r.Context(), day, departmentID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, dash, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	departmentID, err := shared.QueryID(r, "departmentId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "invalid departmentId", middleware.GetRequestID(r.Context()))
		return
	}
	from, to, err := shared.DateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"), 14, time.Now())
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	trend, err := h.Service.Trend(r.Context(), from, to, departmentID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, trend, middleware.GetRequestID(r.Context()))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	if errors.Is(err, compliance.ErrRangeTooLarge) {
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), reqID)
		return
	}
	slog.Error("compliance request failed", "err", err)
	api.Fail(w, http.StatusInternalServerError, "compliance_failed", "compliance request failed", reqID)
}
