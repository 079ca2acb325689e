package payrollhandler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/domain/payroll"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service     *payroll.Service
	Perms       middleware.PermissionStore
	Audit       *audit.Service
	Idempotency *middleware.IdempotencyStore
}

func NewHandler(service *payroll.Service, perms middleware.PermissionStore, auditSvc *audit.Service, idem *middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Idempotency: idem}
}

type structurePayload struct {
	Base       float64 `json:"base" validate:"gte=0"`
	Allowances float64 `json:"allowances" validate:"gte=0"`
	Deductions float64 `json:"deductions" validate:"gte=0"`
	Currency   string  `json:"currency" validate:"omitempty,len=3"`
}

type periodPayload struct {
	Year  int `json:"year" validate:"required,gte=2000,lte=2100"`
	Month int `json:"month" validate:"required,gte=1,lte=12"`
}

type adjustmentPayload struct {
	EmployeeID int64   `json:"employeeId" validate:"required,gt=0"`
	Year       int     `json:"year" validate:"required,gte=2000,lte=2100"`
	Month      int     `json:"month" validate:"required,gte=1,lte=12"`
	Label      string  `json:"label" validate:"required,max=120"`
	Amount     float64 `json:"amount" validate:"ne=0"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	manage := middleware.RequirePermission(auth.PermPayrollManage, h.Perms)
	read := middleware.RequirePermission(auth.PermPayrollRead, h.Perms)

	r.Route("/payroll", func(r chi.Router) {
		r.With(manage).Get("/structures", h.handleListStructures)
		r.With(manage).Get("/structures/{employeeID}", h.handleGetStructure)
		r.With(manage).Put("/structures/{employeeID}", h.handlePutStructure)
		r.With(manage).Get("/adjustments", h.handleListAdjustments)
		r.With(manage).Post("/adjustments", h.handleCreateAdjustment)
		r.With(manage, middleware.Idempotent(h.Idempotency, "payroll.generate")).Post("/generate", h.handleGenerate)
		r.With(manage).Get("/runs", h.handleListRuns)
		r.With(manage).Get("/runs/{runID}/summary", h.handleSummary)
		r.With(manage).Get("/runs/{runID}/slips", h.handleRunSlips)
		r.With(middleware.RequirePermission(auth.PermPayrollLock, h.Perms), middleware.Idempotent(h.Idempotency, "payroll.lock")).Post("/runs/{runID}/lock", h.handleLock)
		r.With(read).Get("/slips/me", h.handleMySlips)
		r.With(middleware.RequireAuth).Get("/slips/{slipID}/pdf", h.handlePDF)
	})
}

func (h *Handler) record(r *http.Request, actorID int64, action, entity, id string, before, after any) {
	if err := h.Audit.Record(r.Context(), actorID, action, entity, id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit payroll failed", "action", action, "err", err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name, label string) (int64, bool) {
	id, err := shared.PathID(r, name)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid "+label+" id", middleware.GetRequestID(r.Context()))
		return 0, false
	}
	return id, true
}

func (h *Handler) handleListStructures(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 100, 500)
	items, total, err := h.Service.ListStructures(r.Context(), page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []payroll.Structure{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetStructure(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := pathID(w, r, "employeeID", "employee")
	if !ok {
		return
	}
	st, err := h.Service.GetStructure(r.Context(), employeeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, st, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePutStructure(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID, ok := pathID(w, r, "employeeID", "employee")
	if !ok {
		return
	}
	var payload structurePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	before, after, err := h.Service.SetStructure(r.Context(), payroll.Structure{
		EmployeeID: employeeID,
		Base:       payload.Base,
		Allowances: payload.Allowances,
		Deductions: payload.Deductions,
		Currency:   payload.Currency,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "payroll.structure.update", "salary_structure", strconv.FormatInt(employeeID, 10), before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func parsePeriodQuery(r *http.Request) (int, int, bool) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		now := time.Now().UTC()
		return now.Year(), int(now.Month()), true
	}
	month, err := shared.ParseMonth(raw)
	if err != nil {
		return 0, 0, false
	}
	return month.Year(), int(month.Month()), true
}

func (h *Handler) handleListAdjustments(w http.ResponseWriter, r *http.Request) {
	year, month, ok := parsePeriodQuery(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "month must be YYYY-MM", middleware.GetRequestID(r.Context()))
		return
	}
	items, err := h.Service.ListAdjustments(r.Context(), year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []payroll.Adjustment{}
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateAdjustment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload adjustmentPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	adj, err := h.Service.AddAdjustment(r.Context(), user.UserID, payroll.Adjustment{
		EmployeeID: payload.EmployeeID,
		Year:       payload.Year,
		Month:      payload.Month,
		Label:      payload.Label,
		Amount:     payload.Amount,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "payroll.adjustment.create", "payroll_adjustment", strconv.FormatInt(adj.ID, 10), nil, adj)
	api.Created(w, adj, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload periodPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	summary, err := h.Service.Generate(r.Context(), payload.Year, payload.Month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "payroll.generate", "payroll_run", strconv.FormatInt(summary.Run.ID, 10), nil,
		map[string]any{"year": payload.Year, "month": payload.Month, "slips": summary.EmployeeCount})
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 24, 120)
	items, total, err := h.Service.ListRuns(r.Context(), page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []payroll.Run{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	runID, ok := pathID(w, r, "runID", "run")
	if !ok {
		return
	}
	summary, err := h.Service.Summary(r.Context(), runID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRunSlips(w http.ResponseWriter, r *http.Request) {
	runID, ok := pathID(w, r, "runID", "run")
	if !ok {
		return
	}
	items, err := h.Service.RunSlips(r.Context(), runID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []payroll.Slip{}
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	runID, ok := pathID(w, r, "runID", "run")
	if !ok {
		return
	}
	run, published, err := h.Service.Lock(r.Context(), user.UserID, runID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response := map[string]any{"run": run, "published": published}
	h.record(r, user.UserID, "payroll.lock", "payroll_run", strconv.FormatInt(runID, 10), nil, response)
	api.Success(w, response, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMySlips(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	items := []payroll.Slip{}
	if user.HasEmployee() {
		slips, err := h.Service.MySlips(r.Context(), user.EmployeeID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if slips != nil {
			items = slips
		}
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	slipID, ok := pathID(w, r, "slipID", "payslip")
	if !ok {
		return
	}
	privileged, err := middleware.Can(r.Context(), h.Perms, auth.PermPayrollManage)
	if err != nil {
		slog.Warn("payroll permission check failed", "err", err)
	}
	slip, err := h.Service.SlipFor(r.Context(), slipID, user.EmployeeID, privileged)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	data, err := h.Service.PDF(r.Context(), slip)
	if err != nil {
		slog.Error("payslip render failed", "slipId", slipID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "payslip_missing", "payslip not available", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="payslip-%d-%02d.pdf"`, slip.Year, slip.Month))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Warn("payslip write failed", "slipId", slipID, "err", err)
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, payroll.ErrRunNotFound), errors.Is(err, payroll.ErrSlipNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, payroll.ErrUnknownEmployee):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, payroll.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), reqID)
	case errors.Is(err, payroll.ErrRunLocked):
		api.Fail(w, http.StatusConflict, "payroll_locked", err.Error(), reqID)
	case errors.Is(err, payroll.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), reqID)
	case errors.Is(err, payroll.ErrInvalidPeriod), errors.Is(err, payroll.ErrInvalidAmount), errors.Is(err, payroll.ErrNoEmployees):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_field", err.Error(), reqID)
	default:
		slog.Error("payroll request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "payroll_failed", "payroll request failed", reqID)
	}
}
