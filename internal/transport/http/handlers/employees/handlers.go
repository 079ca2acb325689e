package employeeshandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/domain/employees"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *employees.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *employees.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

type employeePayload struct {
	EmployeeCode  string   `json:"employeeCode" validate:"max=32"`
	FirstName     string   `json:"firstName" validate:"required,max=100"`
	LastName      string   `json:"lastName" validate:"required,max=100"`
	Email         string   `json:"email" validate:"required,email"`
	Phone         string   `json:"phone" validate:"max=32"`
	DepartmentID  *int64   `json:"departmentId" validate:"omitempty,gt=0"`
	DesignationID *int64   `json:"designationId" validate:"omitempty,gt=0"`
	LocationID    *int64   `json:"locationId" validate:"omitempty,gt=0"`
	ManagerID     *int64   `json:"managerId" validate:"omitempty,gt=0"`
	DateOfJoining string   `json:"dateOfJoining"`
	Status        string   `json:"status" validate:"omitempty,oneof=active on_leave terminated"`
	Salary        *float64 `json:"salary" validate:"omitempty,gte=0"`
	BankAccount   string   `json:"bankAccount" validate:"max=34"`
}

type terminatePayload struct {
	Date string `json:"date"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListEmployees)
		r.With(middleware.RequireAuth).Get("/me", h.handleMe)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreateEmployee)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleGetEmployee)
			r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/", h.handleUpdateEmployee)
			r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/terminate", h.handleTerminateEmployee)
		})
	})
}

func (p employeePayload) toEmployee(w http.ResponseWriter, r *http.Request) (employees.Employee, bool) {
	validator := shared.NewValidator()
	validator.Struct(p)
	var joined *time.Time
	if p.DateOfJoining != "" {
		parsed, err := shared.ParseDate(p.DateOfJoining)
		if err != nil {
			validator.Add("dateOfJoining", "must be YYYY-MM-DD")
		} else {
			day := shared.Day(parsed)
			joined = &day
		}
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return employees.Employee{}, false
	}
	return employees.Employee{
		EmployeeCode:  p.EmployeeCode,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Email:         p.Email,
		Phone:         p.Phone,
		DepartmentID:  p.DepartmentID,
		DesignationID: p.DesignationID,
		LocationID:    p.LocationID,
		ManagerID:     p.ManagerID,
		DateOfJoining: joined,
		Status:        p.Status,
		Salary:        p.Salary,
		BankAccount:   p.BankAccount,
	}, true
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if !user.HasEmployee() {
		api.Fail(w, http.StatusNotFound, "not_found", "no employee profile linked to this account", middleware.GetRequestID(r.Context()))
		return
	}
	emp, err := h.Service.Get(r.Context(), user.EmployeeID)
	if err != nil {
		writeServiceError(w, r, err, "employee_load_failed", "failed to load employee")
		return
	}
	employees.FilterEmployeeFields(&emp, user, true)
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	departmentID, err := shared.QueryID(r, "departmentId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "invalid departmentId", middleware.GetRequestID(r.Context()))
		return
	}
	filter := employees.Filter{
		DepartmentID: departmentID,
		Status:       r.URL.Query().Get("status"),
		Query:        r.URL.Query().Get("q"),
	}
	if filter.Status != "" && !employees.ValidStatus(filter.Status) {
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "invalid status", middleware.GetRequestID(r.Context()))
		return
	}
	switch {
	case auth.IsPrivileged(user.RoleName):
	case user.RoleName == auth.RoleManager && user.HasEmployee():
		filter.TeamOf = user.EmployeeID
	case user.HasEmployee():
		filter.ID = user.EmployeeID
	default:
		shared.SetTotal(w, 0)
		api.Success(w, []employees.Employee{}, middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 100, 500)
	items, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	for i := range items {
		employees.FilterEmployeeFields(&items[i], user, items[i].ID == user.EmployeeID)
	}
	if items == nil {
		items = []employees.Employee{}
	}

	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID, err := shared.PathID(r, "employeeID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid employee id", middleware.GetRequestID(r.Context()))
		return
	}
	allowed, err := h.Service.CanView(r.Context(), user, employeeID)
	if err != nil {
		slog.Warn("employee scope check failed", "err", err)
	}
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Service.Get(r.Context(), employeeID)
	if err != nil {
		writeServiceError(w, r, err, "employee_load_failed", "failed to load employee")
		return
	}

	employees.FilterEmployeeFields(&emp, user, emp.ID == user.EmployeeID)
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload employeePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	emp, ok := payload.toEmployee(w, r)
	if !ok {
		return
	}

	created, err := h.Service.Create(r.Context(), emp)
	if err != nil {
		writeServiceError(w, r, err, "employee_create_failed", "failed to create employee")
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "employee.create", "employee", strconv.FormatInt(created.ID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, redacted(created)); err != nil {
		slog.Warn("audit employee create failed", "err", err)
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID, err := shared.PathID(r, "employeeID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid employee id", middleware.GetRequestID(r.Context()))
		return
	}
	var payload employeePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	emp, ok := payload.toEmployee(w, r)
	if !ok {
		return
	}

	before, after, err := h.Service.Update(r.Context(), employeeID, emp)
	if err != nil {
		writeServiceError(w, r, err, "employee_update_failed", "failed to update employee")
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "employee.update", "employee", strconv.FormatInt(employeeID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), redacted(before), redacted(after)); err != nil {
		slog.Warn("audit employee update failed", "err", err)
	}
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTerminateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID, err := shared.PathID(r, "employeeID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid employee id", middleware.GetRequestID(r.Context()))
		return
	}
	if employeeID == user.EmployeeID {
		api.Fail(w, http.StatusConflict, "self_termination", "you cannot terminate yourself", middleware.GetRequestID(r.Context()))
		return
	}
	var payload terminatePayload
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
	}
	on, err := shared.ParseDate(payload.Date)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_field", "date must be YYYY-MM-DD", middleware.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Service.Terminate(r.Context(), employeeID, on)
	if err != nil {
		writeServiceError(w, r, err, "employee_terminate_failed", "failed to terminate employee")
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "employee.terminate", "employee", strconv.FormatInt(employeeID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{"terminatedAt": emp.TerminatedAt}); err != nil {
		slog.Warn("audit employee terminate failed", "err", err)
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

// redacted keeps compensation data out of the audit trail.
func redacted(emp employees.Employee) employees.Employee {
	emp.BankAccount = ""
	emp.Salary = nil
	return emp
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, employees.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
	case errors.Is(err, employees.ErrDuplicate):
		api.Fail(w, http.StatusConflict, "employee_exists", "employee email or code already exists", reqID)
	case errors.Is(err, employees.ErrAlreadyTerminated):
		api.Fail(w, http.StatusConflict, "already_terminated", err.Error(), reqID)
	case errors.Is(err, employees.ErrManagerCycle):
		api.Fail(w, http.StatusConflict, "manager_cycle", err.Error(), reqID)
	case errors.Is(err, employees.ErrInvalidManager), errors.Is(err, employees.ErrInvalidStatus), errors.Is(err, employees.ErrInvalidReference):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_reference", err.Error(), reqID)
	default:
		slog.Error(code, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}
