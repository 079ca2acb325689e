package usershandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/domain/users"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *users.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *users.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

type createUserRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	Role       string `json:"role" validate:"required,oneof=employee manager hr system_admin"`
	EmployeeID *int64 `json:"employeeId" validate:"omitempty,gt=0"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=employee manager hr system_admin"`
}

type permissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermUsersManage, h.Perms))
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.handleList)
			r.Post("/", h.handleCreate)
			r.Get("/{userID}", h.handleGet)
			r.Put("/{userID}/role", h.handleChangeRole)
			r.Post("/{userID}/activate", h.handleActivate)
			r.Post("/{userID}/deactivate", h.handleDeactivate)
		})
		r.Get("/roles", h.handleListRoles)
		r.Put("/roles/{roleID}/permissions", h.handleSetRolePermissions)
		r.Get("/permissions", h.handleListPermissions)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := users.Filter{Role: r.URL.Query().Get("role"), Query: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_filter", "active must be true or false", middleware.GetRequestID(r.Context()))
			return
		}
		filter.Active = &active
	}
	page := shared.ParsePagination(r, 100, 500)
	items, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "user_list_failed", "failed to list users", middleware.GetRequestID(r.Context()))
		return
	}
	if items == nil {
		items = []users.User{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := shared.PathID(r, "userID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid user id", middleware.GetRequestID(r.Context()))
		return
	}
	u, err := h.Service.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, u, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload createUserRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.Create(r.Context(), users.NewUser{
		Email:      payload.Email,
		Password:   payload.Password,
		Role:       payload.Role,
		EmployeeID: payload.EmployeeID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.Audit.Record(r.Context(), actor.UserID, "user.create", "user", strconv.FormatInt(created.ID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, created); err != nil {
		slog.Warn("audit user create failed", "err", err)
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	userID, err := shared.PathID(r, "userID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid user id", middleware.GetRequestID(r.Context()))
		return
	}
	var payload roleRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	before, after, err := h.Service.ChangeRole(r.Context(), actor.UserID, userID, payload.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.Audit.Record(r.Context(), actor.UserID, "user.role.update", "user", strconv.FormatInt(userID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"role": before.Role}, map[string]string{"role": after.Role}); err != nil {
		slog.Warn("audit user role failed", "err", err)
	}
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	actor, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	userID, err := shared.PathID(r, "userID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid user id", middleware.GetRequestID(r.Context()))
		return
	}

	updated, err := h.Service.SetActive(r.Context(), actor.UserID, userID, active)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	action := "user.deactivate"
	if active {
		action = "user.activate"
	}
	if err := h.Audit.Record(r.Context(), actor.UserID, action, "user", strconv.FormatInt(userID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]bool{"active": active}); err != nil {
		slog.Warn("audit user status failed", "err", err)
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.ListRoles(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "role_list_failed", "failed to list roles", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, roles, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.Service.ListPermissions(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "permission_list_failed", "failed to list permissions", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, perms, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetRolePermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	roleID, err := shared.PathID(r, "roleID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid role id", middleware.GetRequestID(r.Context()))
		return
	}
	var payload permissionsRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	role, err := h.Service.SetRolePermissions(r.Context(), roleID, payload.Permissions)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.Audit.Record(r.Context(), actor.UserID, "role.permissions.update", "role", strconv.FormatInt(roleID, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, role.Permissions); err != nil {
		slog.Warn("audit role permissions failed", "err", err)
	}
	api.Success(w, role, middleware.GetRequestID(r.Context()))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, users.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", reqID)
	case errors.Is(err, users.ErrUnknownRole):
		api.Fail(w, http.StatusNotFound, "not_found", "role not found", reqID)
	case errors.Is(err, users.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", err.Error(), reqID)
	case errors.Is(err, users.ErrSelfDeactivate), errors.Is(err, users.ErrSelfRoleChange), errors.Is(err, users.ErrAdminLockout):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), reqID)
	case errors.Is(err, users.ErrInvalidEmployee), errors.Is(err, users.ErrUnknownPermission):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_reference", err.Error(), reqID)
	case auth.IsPasswordPolicyError(err):
		api.Fail(w, http.StatusBadRequest, "weak_password", err.Error(), reqID)
	default:
		slog.Error("user admin failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "user_admin_failed", "user administration failed", reqID)
	}
}
