package leavehandler

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hrms/internal/domain/auth"
	"hrms/internal/domain/leave"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type applyPayload struct {
	LeaveTypeID int64  `json:"leaveTypeId" validate:"required,gt=0"`
	StartDate   string `json:"startDate" validate:"required"`
	EndDate     string `json:"endDate" validate:"required"`
	StartHalf   bool   `json:"startHalf"`
	EndHalf     bool   `json:"endHalf"`
	Reason      string `json:"reason" validate:"max=1000"`
}

type decisionPayload struct {
	Note string `json:"note" validate:"max=1000"`
}

// scopedFilter limits listings to what the caller may see: HR sees all,
// managers their team, everyone else their own requests.
func scopedFilter(user auth.UserContext) (leave.RequestFilter, bool) {
	switch {
	case auth.IsPrivileged(user.RoleName):
		return leave.RequestFilter{}, true
	case !user.HasEmployee():
		return leave.RequestFilter{}, false
	case user.RoleName == auth.RoleManager:
		return leave.RequestFilter{TeamOf: user.EmployeeID}, true
	default:
		return leave.RequestFilter{EmployeeID: user.EmployeeID}, true
	}
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if !user.HasEmployee() {
		api.Fail(w, http.StatusForbidden, "employee_required", "an employee profile is required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload applyPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	start, startOK := validator.Date("startDate", payload.StartDate)
	end, endOK := validator.Date("endDate", payload.EndDate)
	if startOK && endOK {
		validator.DateOrder("startDate", start, "endDate", end)
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	req, err := h.Service.Apply(r.Context(), user.EmployeeID, leave.ApplyInput{
		LeaveTypeID: payload.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		StartHalf:   payload.StartHalf,
		EndHalf:     payload.EndHalf,
		Reason:      payload.Reason,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "leave.request.create", "leave_request", req.ID, nil, req)
	api.Created(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	filter, allowed := scopedFilter(user)
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}
	query := r.URL.Query()
	if query.Get("mine") == "true" {
		filter = leave.RequestFilter{EmployeeID: user.EmployeeID}
	}
	if employeeID, err := shared.QueryID(r, "employeeId"); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "invalid employeeId", middleware.GetRequestID(r.Context()))
		return
	} else if employeeID > 0 && filter.EmployeeID == 0 {
		filter.EmployeeID = employeeID
	}
	if status := query.Get("status"); status != "" {
		filter.Status = status
	}

	page := shared.ParsePagination(r, 100, 500)
	items, total, err := h.Service.ListRequests(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []leave.Request{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, err := shared.PathID(r, "requestID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid leave request id", middleware.GetRequestID(r.Context()))
		return
	}
	req, err := h.Service.GetRequest(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	allowed, err := h.Service.CanView(r.Context(), user, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !allowed {
		api.Fail(w, http.StatusNotFound, "not_found", leave.ErrNotFound.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "leave.request.approve", h.Service.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "leave.request.reject", h.Service.Reject)
}


func (h *Handler) decide(w http.ResponseWriter, r *http.Request, action string, fn func(context.Context, auth.UserContext, int64, string) (leave.Request, leave.Request, error)) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, err := shared.PathID(r, "requestID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid leave request id", middleware.GetRequestID(r.Context()))
		return
	}
	var payload decisionPayload
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

	before, after, err := fn(r.Context(), user, id, payload.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, action, "leave_request", id, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, err := shared.PathID(r, "requestID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid leave request id", middleware.GetRequestID(r.Context()))
		return
	}
	before, after, err := h.Service.Cancel(r.Context(), user, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "leave.request.cancel", "leave_request", id, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) calendarRows(w http.ResponseWriter, r *http.Request) ([]leave.Request, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return nil, false
	}
	filter, allowed := scopedFilter(user)
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return nil, false
	}
	fromRaw, toRaw := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if fromRaw == "" && toRaw == "" {
		today := time.Now().UTC()
		fromRaw = today.Format("2006-01-02")
		toRaw = today.AddDate(0, 0, 30).Format("2006-01-02")
	}
	from, to, err := shared.DateRange(fromRaw, toRaw, 31, time.Now())
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), middleware.GetRequestID(r.Context()))
		return nil, false
	}
	rows, err := h.Service.Calendar(r.Context(), filter, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	if rows == nil {
		rows = []leave.Request{}
	}
	return rows, true
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.calendarRows(w, r)
	if !ok {
		return
	}
	api.Success(w, rows, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCalendarExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "ics" {
		api.Fail(w, http.StatusBadRequest, "invalid_format", "format must be csv or ics", middleware.GetRequestID(r.Context()))
		return
	}
	rows, ok := h.calendarRows(w, r)
	if !ok {
		return
	}

	if format == "ics" {
		w.Header().Set("Content-Type", "text/calendar")
		w.Header().Set("Content-Disposition", "attachment; filename=leave-calendar.ics")
		var builder strings.Builder
		builder.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//HRMS//Leave Calendar//EN\r\n")
		for _, row := range rows {
			builder.WriteString("BEGIN:VEVENT\r\n")
			builder.WriteString(fmt.Sprintf("UID:leave-%d@hrms\r\n", row.ID))
			builder.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", row.StartDate.Format("20060102")))
			builder.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", row.EndDate.AddDate(0, 0, 1).Format("20060102")))
			builder.WriteString(fmt.Sprintf("SUMMARY:%s - %s (%s)\r\n", row.EmployeeName, row.LeaveTypeCode, row.Status))
			builder.WriteString("END:VEVENT\r\n")
		}
		builder.WriteString("END:VCALENDAR\r\n")
		if _, err := w.Write([]byte(builder.String())); err != nil {
			slog.Warn("calendar export write failed", "err", err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=leave-calendar.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "employee_id", "employee", "leave_type", "start_date", "end_date", "days", "status"}); err != nil {
		slog.Warn("calendar export csv header write failed", "err", err)
	}
	for _, row := range rows {
		record := []string{
			strconv.FormatInt(row.ID, 10),
			strconv.FormatInt(row.EmployeeID, 10),
			row.EmployeeName,
			row.LeaveTypeCode,
			row.StartDate.Format("2006-01-02"),
			row.EndDate.Format("2006-01-02"),
			strconv.FormatFloat(row.Days, 'f', 1, 64),
			row.Status,
		}
		if err := writer.Write(record); err != nil {
			slog.Warn("calendar export csv row write failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("calendar export csv flush failed", "err", err)
	}
}

func (h *Handler) handleReportBalances(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.BalanceReport(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if report == nil {
		report = []leave.BalanceReportRow{}
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReportUsage(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	defaultFrom := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	fromRaw := r.URL.Query().Get("from")
	if fromRaw == "" {
		fromRaw = defaultFrom.Format("2006-01-02")
	}
	from, to, err := shared.DateRange(fromRaw, r.URL.Query().Get("to"), 366, now)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	report, err := h.Service.UsageReport(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if report == nil {
		report = []leave.UsageReportRow{}
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}
