package masterdatahandler

import (
	"net/http"
	"time"

	"hrms/internal/domain/masterdata"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type projectPayload struct {
	Code        string `json:"code" validate:"required,max=32"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Status      string `json:"status" validate:"omitempty,oneof=active on_hold completed"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

type assignmentPayload struct {
	EmployeeID        int64  `json:"employeeId" validate:"required,gt=0"`
	Role              string `json:"role" validate:"max=100"`
	AllocationPercent int    `json:"allocationPercent" validate:"omitempty,min=1,max=100"`
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate"`
}

// optionalDates parses an optional start/end pair, recording issues on v.
func optionalDates(v *shared.Validator, startRaw, endRaw string) (*time.Time, *time.Time) {
	var start, end *time.Time
	if startRaw != "" {
		if parsed, ok := v.Date("startDate", startRaw); ok {
			day := shared.Day(parsed)
			start = &day
		}
	}
	if endRaw != "" {
		if parsed, ok := v.Date("endDate", endRaw); ok {
			day := shared.Day(parsed)
			end = &day
		}
	}
	if start != nil && end != nil {
		v.DateOrder("startDate", *start, "endDate", *end)
	}
	return start, end
}

func (p projectPayload) toProject(w http.ResponseWriter, r *http.Request) (masterdata.Project, bool) {
	validator := shared.NewValidator()
	validator.Struct(p)
	start, end := optionalDates(validator, p.StartDate, p.EndDate)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return masterdata.Project{}, false
	}
	return masterdata.Project{
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		StartDate:   start,
		EndDate:     end,
	}, true
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 100, 500)
	items, total, err := h.Service.ListProjects(r.Context(), r.URL.Query().Get("status"), page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []masterdata.Project{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}
	project, err := h.Service.GetProject(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, project, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var payload projectPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	project, ok := payload.toProject(w, r)
	if !ok {
		return
	}
	created, err := h.Service.CreateProject(r.Context(), project)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, "project.create", "project", created.ID, nil, created)
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}
	var payload projectPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	project, ok := payload.toProject(w, r)
	if !ok {
		return
	}
	before, after, err := h.Service.UpdateProject(r.Context(), id, project)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, "project.update", "project", id, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}
	if err := h.Service.DeleteProject(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, "project.delete", "project", id, nil, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}
	items, err := h.Service.ListAssignments(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []masterdata.Assignment{}
	}
	shared.SetTotal(w, len(items))
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}
	var payload assignmentPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	start, end := optionalDates(validator, payload.StartDate, payload.EndDate)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	assignment, err := h.Service.Assign(r.Context(), masterdata.Assignment{
		ProjectID:         projectID,
		EmployeeID:        payload.EmployeeID,
		Role:              payload.Role,
		AllocationPercent: payload.AllocationPercent,
		StartDate:         start,
		EndDate:           end,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, "project.assign", "project", projectID, nil, assignment)
	api.Created(w, assignment, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}
	assignmentID, ok := pathID(w, r, "assignmentID")
	if !ok {
		return
	}
	if err := h.Service.Unassign(r.Context(), projectID, assignmentID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, "project.unassign", "project", projectID, nil, map[string]int64{"assignmentId": assignmentID})
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}
