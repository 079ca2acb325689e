package masterdatahandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/domain/masterdata"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *masterdata.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *masterdata.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

type departmentPayload struct {
	Name string `json:"name" validate:"required,max=120"`
	Code string `json:"code" validate:"max=16"`
}

type designationPayload struct {
	Title        string `json:"title" validate:"required,max=120"`
	DepartmentID *int64 `json:"departmentId" validate:"omitempty,gt=0"`
}

type locationPayload struct {
	Name    string `json:"name" validate:"required,max=120"`
	Address string `json:"address" validate:"max=500"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermMasterDataRead, h.Perms)
	write := middleware.RequirePermission(auth.PermMasterDataWrite, h.Perms)

	r.Route("/departments", func(r chi.Router) {
		r.With(read).Get("/", h.handleListDepartments)
		r.With(write).Post("/", h.handleCreateDepartment)
		r.With(write).Put("/{departmentID}", h.handleUpdateDepartment)
		r.With(write).Delete("/{departmentID}", h.handleDeleteDepartment)
	})
	r.Route("/designations", func(r chi.Router) {
		r.With(read).Get("/", h.handleListDesignations)
		r.With(write).Post("/", h.handleCreateDesignation)
		r.With(write).Put("/{designationID}", h.handleUpdateDesignation)
		r.With(write).Delete("/{designationID}", h.handleDeleteDesignation)
	})
	r.Route("/locations", func(r chi.Router) {
		r.With(read).Get("/", h.handleListLocations)
		r.With(write).Post("/", h.handleCreateLocation)
		r.With(write).Put("/{locationID}", h.handleUpdateLocation)
		r.With(write).Delete("/{locationID}", h.handleDeleteLocation)
	})
	r.Route("/projects", func(r chi.Router) {
		r.With(read).Get("/", h.handleListProjects)
		r.With(write).Post("/", h.handleCreateProject)
		r.Route("/{projectID}", func(r chi.Router) {
			r.With(read).Get("/", h.handleGetProject)
			r.With(write).Put("/", h.handleUpdateProject)
			r.With(write).Delete("/", h.handleDeleteProject)
			r.With(read).Get("/assignments", h.handleListAssignments)
			r.With(write).Post("/assignments", h.handleCreateAssignment)
			r.With(write).Delete("/assignments/{assignmentID}", h.handleDeleteAssignment)
		})
	})
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListDepartments(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_list_failed", "failed to list departments", middleware.GetRequestID(r.Context()))
		return
	}
	if items == nil {
		items = []masterdata.Department{}
	}
	shared.SetTotal(w, len(items))
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var payload departmentPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	dept, err := h.Service.CreateDepartment(r.Context(), masterdata.Department{Name: payload.Name, Code: payload.Code})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, "department.create", "department", dept.ID, nil, dept)
	api.Created(w, dept, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "departmentID")
	if !ok {
		return
	}
	var payload departmentPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	dept, err := h.Service.UpdateDepartment(r.Context(), id, masterdata.Department{Name: payload.Name, Code: payload.Code})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, "department.update", "department", id, nil, dept)
	api.Success(w, dept, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "departmentID")
	if !ok {
		return
	}
	if err := h.Service.DeleteDepartment(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, "department.delete", "department", id, nil, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDesignations(w http.ResponseWriter, r *http.Request) {
	departmentID, err := shared.QueryID(r, "departmentId")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "invalid departmentId", middleware.GetRequestID(r.Context()))
		return
	}
	items, err := h.Service.ListDesignations(r.Context(), departmentID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "designation_list_failed", "failed to list designations", middleware.GetRequestID(r.Context()))
		return
	}
	if items == nil {
		items = []masterdata.Designation{}
	}
	shared.SetTotal(w, len(items))
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDesignation(w http.ResponseWriter, r *http.Request) {
	var payload designationPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	d, err := h.Service.CreateDesignation(r.Context(), masterdata.Designation{Title: payload.Title, DepartmentID: payload.DepartmentID})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, "designation.create", "designation", d.ID, nil, d)
	api.Created(w, d, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateDesignation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "designationID")
	if !ok {
		return
	}
	var payload designationPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	d, err := h.Service.UpdateDesignation(r.Context(), id, masterdata.Designation{Title: payload.Title, DepartmentID: payload.DepartmentID})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, "designation.update", "designation", id, nil, d)
	api.Success(w, d, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteDesignation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "designationID")
	if !ok {
		return
	}
	if err := h.Service.DeleteDesignation(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, "designation.delete", "designation", id, nil, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListLocations(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListLocations(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "location_list_failed", "failed to list locations", middleware.GetRequestID(r.Context()))
		return
	}
	if items == nil {
		items = []masterdata.Location{}
	}
	shared.SetTotal(w, len(items))
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var payload locationPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	loc, err := h.Service.CreateLocation(r.Context(), masterdata.Location{Name: payload.Name, Address: payload.Address})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, "location.create", "location", loc.ID, nil, loc)
	api.Created(w, loc, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "locationID")
	if !ok {
		return
	}
	var payload locationPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	loc, err := h.Service.UpdateLocation(r.Context(), id, masterdata.Location{Name: payload.Name, Address: payload.Address})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, "location.update", "location", id, nil, loc)
	api.Success(w, loc, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "locationID")
	if !ok {
		return
	}
	if err := h.Service.DeleteLocation(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, "location.delete", "location", id, nil, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) record(r *http.Request, action, entityType string, id int64, before, after any) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Audit.Record(r.Context(), user.UserID, action, entityType, strconv.FormatInt(id, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := shared.PathID(r, name)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid id", middleware.GetRequestID(r.Context()))
		return 0, false
	}
	return id, true
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, payload any) bool {
	if err := shared.DecodeJSON(r, payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return false
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	return !validator.Reject(w, middleware.GetRequestID(r.Context()))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, masterdata.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, masterdata.ErrDuplicate):
		api.Fail(w, http.StatusConflict, "duplicate", err.Error(), reqID)
	case errors.Is(err, masterdata.ErrInUse):
		api.Fail(w, http.StatusConflict, "in_use", err.Error(), reqID)
	case errors.Is(err, masterdata.ErrInvalidReference), errors.Is(err, masterdata.ErrInvalidDates),
		errors.Is(err, masterdata.ErrInvalidStatus), errors.Is(err, masterdata.ErrInvalidName),
		errors.Is(err, masterdata.ErrInvalidPercent):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_field", err.Error(), reqID)
	default:
		slog.Error("master data request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "masterdata_failed", "master data request failed", reqID)
	}
}
