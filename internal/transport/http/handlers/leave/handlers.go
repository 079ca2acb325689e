package leavehandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/domain/employees"
	"hrms/internal/domain/leave"
	"hrms/internal/platform/jobs"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service   *leave.Service
	Employees *employees.Service
	Jobs      *jobs.Service
	Perms     middleware.PermissionStore
	Audit     *audit.Service
}

func NewHandler(service *leave.Service, employeesSvc *employees.Service, jobsSvc *jobs.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Employees: employeesSvc, Jobs: jobsSvc, Perms: perms, Audit: auditSvc}
}

type leaveTypePayload struct {
	Code              string  `json:"code" validate:"required,max=16"`
	Name              string  `json:"name" validate:"required,max=100"`
	IsPaid            bool    `json:"isPaid"`
	RequiresDoc       bool    `json:"requiresDoc"`
	AnnualEntitlement float64 `json:"annualEntitlement" validate:"gte=0,lte=365"`
}

type policyPayload struct {
	AccrualRate        float64 `json:"accrualRate" validate:"gte=0,lte=31"`
	AccrualPeriod      string  `json:"accrualPeriod" validate:"omitempty,oneof=weekly monthly yearly"`
	CarryOverLimit     float64 `json:"carryOverLimit" validate:"gte=0,lte=365"`
	AllowNegative      bool    `json:"allowNegative"`
	RequiresHRApproval bool    `json:"requiresHrApproval"`
}

type adjustPayload struct {
	EmployeeID  int64   `json:"employeeId" validate:"required,gt=0"`
	LeaveTypeID int64   `json:"leaveTypeId" validate:"required,gt=0"`
	Delta       float64 `json:"delta" validate:"required,gte=-365,lte=365"`
	Reason      string  `json:"reason" validate:"required,max=500"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermLeaveRead, h.Perms)
	write := middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)
	manage := middleware.RequirePermission(auth.PermLeaveManage, h.Perms)

	r.Route("/leave", func(r chi.Router) {
		r.With(read).Get("/types", h.handleListTypes)
		r.With(manage).Post("/types", h.handleCreateType)
		r.With(read).Get("/policies", h.handleListPolicies)
		r.With(manage).Put("/policies/{typeID}", h.handleUpdatePolicy)

		r.With(read).Get("/balances", h.handleBalances)
		r.With(manage).Post("/balances/adjust", h.handleAdjustBalance)
		r.With(manage).Post("/accrual/run", h.handleRunAccrual)

		r.With(read).Get("/requests", h.handleListRequests)
		r.With(write).Post("/requests", h.handleApply)
		r.With(read).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApprove)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleReject)
		r.With(write).Post("/requests/{requestID}/cancel", h.handleCancel)

		r.With(read).Get("/calendar", h.handleCalendar)
		r.With(read).Get("/calendar/export", h.handleCalendarExport)
		r.With(manage).Get("/reports/balances", h.handleReportBalances)
		r.With(manage).Get("/reports/usage", h.handleReportUsage)
	})
	r.With(write).Post("/leaves/apply", h.handleApply)
}

func (h *Handler) record(r *http.Request, actorID int64, action, entity string, id int64, before, after any) {
	if err := h.Audit.Record(r.Context(), actorID, action, entity, strconv.FormatInt(id, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit leave failed", "action", action, "err", err)
	}
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListTypes(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []leave.LeaveType{}
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateType(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload leaveTypePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	lt, err := h.Service.CreateType(r.Context(), leave.LeaveType{
		Code:              payload.Code,
		Name:              payload.Name,
		IsPaid:            payload.IsPaid,
		RequiresDoc:       payload.RequiresDoc,
		AnnualEntitlement: payload.AnnualEntitlement,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "leave.type.create", "leave_type", lt.ID, nil, lt)
	api.Created(w, lt, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListPolicies(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []leave.Policy{}
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	typeID, err := shared.PathID(r, "typeID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid leave type id", middleware.GetRequestID(r.Context()))
		return
	}
	var payload policyPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	policy, err := h.Service.UpdatePolicy(r.Context(), leave.Policy{
		LeaveTypeID:        typeID,
		AccrualRate:        payload.AccrualRate,
		AccrualPeriod:      payload.AccrualPeriod,
		CarryOverLimit:     payload.CarryOverLimit,
		AllowNegative:      payload.AllowNegative,
		RequiresHRApproval: payload.RequiresHRApproval,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "leave.policy.update", "leave_policy", typeID, nil, policy)
	api.Success(w, policy, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
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
		slog.Warn("leave scope check failed", "err", err)
	}
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	items, err := h.Service.Balances(r.Context(), employeeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []leave.Balance{}
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload adjustPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	before, after, err := h.Service.AdjustBalance(r.Context(), payload.EmployeeID, payload.LeaveTypeID, payload.Delta)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "leave.balance.adjust", "leave_balance", payload.EmployeeID, before, map[string]any{
		"balance": after,
		"delta":   payload.Delta,
		"reason":  payload.Reason,
	})
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRunAccrual(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var (
		result any
		err    error
	)
	if h.Jobs != nil {
		result, err = h.Jobs.RunNow(r.Context(), jobs.JobLeaveAccrual)
	} else {
		result, err = h.Service.RunAccruals(r.Context())
	}
	if err != nil {
		slog.Error("leave accrual run failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "accrual_failed", "failed to run accruals", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, user.UserID, "leave.accrual.run", "leave_policy", 0, nil, result)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, leave.ErrTypeNotFound):
		api.Fail(w, http.StatusNotFound, "leave_type_not_found", err.Error(), reqID)
	case errors.Is(err, leave.ErrDuplicateType):
		api.Fail(w, http.StatusConflict, "duplicate_leave_type", err.Error(), reqID)
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), reqID)
	case errors.Is(err, leave.ErrHRApprovalRequired):
		api.Fail(w, http.StatusForbidden, "hr_approval_required", err.Error(), reqID)
	case errors.Is(err, leave.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), reqID)
	case errors.Is(err, leave.ErrOverlap):
		api.Fail(w, http.StatusConflict, "leave_overlap", err.Error(), reqID)
	case errors.Is(err, leave.ErrInsufficientBalance):
		api.Fail(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error(), reqID)
	case errors.Is(err, leave.ErrInvalidRange), errors.Is(err, leave.ErrNoWorkingDays), errors.Is(err, leave.ErrInvalidPolicy):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_field", err.Error(), reqID)
	default:
		slog.Error("leave request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "leave_failed", "leave request failed", reqID)
	}
}
