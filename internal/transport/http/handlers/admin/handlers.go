package adminhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/platform/db"
	"hrms/internal/platform/jobs"
	"hrms/internal/platform/metrics"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

// Diagnoser runs the read-only schema and data checks.
type Diagnoser func(ctx context.Context) (db.Diagnosis, error)

type Handler struct {
	Diagnose Diagnoser
	Jobs     *jobs.Service
	Metrics  *metrics.Collector
	Perms    middleware.PermissionStore
	Audit    *audit.Service
}

func NewHandler(diagnose Diagnoser, jobsSvc *jobs.Service, collector *metrics.Collector, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Diagnose: diagnose, Jobs: jobsSvc, Metrics: collector, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms))
		r.Get("/diagnostics", h.handleDiagnostics)
		r.Get("/metrics", h.handleMetrics)
		r.Post("/jobs/{jobType}/run", h.handleRunJob)
	})
}

func (h *Handler) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	diag, err := h.Diagnose(r.Context())
	if err != nil {
		slog.Error("diagnostics failed", "err", err, "request_id", reqID)
		api.Fail(w, http.StatusInternalServerError, "diagnostics_failed", "failed to run diagnostics", reqID)
		return
	}
	api.Success(w, map[string]any{
		"healthy":   diag.Healthy(),
		"diagnosis": diag,
	}, reqID)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRunJob(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	jobType := strings.TrimSpace(chi.URLParam(r, "jobType"))
	result, err := h.Jobs.RunNow(r.Context(), jobType)
	if err != nil {
		if errors.Is(err, jobs.ErrUnknownJob) {
			api.Fail(w, http.StatusNotFound, "not_found", "unknown job type", reqID)
			return
		}
		slog.Error("manual job run failed", "jobType", jobType, "err", err, "request_id", reqID)
		api.Fail(w, http.StatusInternalServerError, "job_failed", "job run failed", reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "job.run", "job", jobType, reqID, shared.ClientIP(r), nil, result); err != nil {
		slog.Warn("audit job run failed", "jobType", jobType, "err", err)
	}
	api.Success(w, map[string]any{"jobType": jobType, "result": result}, reqID)
}
