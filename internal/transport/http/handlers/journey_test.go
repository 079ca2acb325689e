package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestEmployeeLeaveJourney(t *testing.T) {
	srv := startServer(t)
	hr := srv.hrToken(t)

	employeeID := srv.createEmployee(t, hr, nil)
	employee := srv.createLogin(t, hr, "employee", employeeID)
	typeID := srv.createLeaveType(t, hr, false)

	start := nextWeekday()
	var req idResponse
	srv.mustDo(t, http.MethodPost, "/api/v1/leave/requests", employee, map[string]any{
		"leaveTypeId": typeID,
		"startDate":   start.Format(time.DateOnly),
		"endDate":     start.AddDate(0, 0, 1).Format(time.DateOnly),
		"reason":      "family visit",
	}, http.StatusCreated, &req)
	// Without a manager the request goes straight to HR.
	if req.Status != "pending_hr" {
		t.Fatalf("expected pending_hr, got %s", req.Status)
	}

	status, _ := srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/leave/requests/%d/approve", req.ID), employee, map[string]any{}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected employee approval to be forbidden, got %d", status)
	}

	var approved struct {
		Status string  `json:"status"`
		Days   float64 `json:"days"`
	}
	srv.mustDo(t, http.MethodPost, fmt.Sprintf("/api/v1/leave/requests/%d/approve", req.ID), hr, map[string]any{"note": "ok"}, http.StatusOK, &approved)
	if approved.Status != "approved" {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if approved.Days != 2 {
		t.Fatalf("expected 2 days, got %v", approved.Days)
	}

	var balances []struct {
		LeaveTypeID int64   `json:"leaveTypeId"`
		Used        float64 `json:"used"`
	}
	srv.mustDo(t, http.MethodGet, fmt.Sprintf("/api/v1/leave/balances?employeeId=%d", employeeID), hr, nil, http.StatusOK, &balances)
	found := false
	for _, b := range balances {
		if b.LeaveTypeID == typeID {
			found = true
			if b.Used != 2 {
				t.Fatalf("expected 2 days used, got %v", b.Used)
			}
		}
	}
	if !found {
		t.Fatal("expected a balance row for the new leave type")
	}

	status, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/leave/requests/%d/approve", req.ID), hr, map[string]any{}, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected second approval conflict, got %d", status)
	}
}

func TestEmployeeCannotReadOtherProfile(t *testing.T) {
	srv := startServer(t)
	hr := srv.hrToken(t)

	first := srv.createEmployee(t, hr, nil)
	second := srv.createEmployee(t, hr, nil)
	token := srv.createLogin(t, hr, "employee", first)

	srv.mustDo(t, http.MethodGet, fmt.Sprintf("/api/v1/employees/%d", first), token, nil, http.StatusOK, nil)

	status, _ := srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/employees/%d", second), token, nil, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected other profile to be forbidden, got %d", status)
	}

	status, _ = srv.do(t, http.MethodPost, "/api/v1/employees", token, map[string]any{
		"firstName": "No", "lastName": "Access", "email": uniqueEmail("denied"),
	}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected employee create to be forbidden, got %d", status)
	}
}

func TestAttendanceCheckInOut(t *testing.T) {
	srv := startServer(t)
	hr := srv.hrToken(t)

	employeeID := srv.createEmployee(t, hr, nil)
	token := srv.createLogin(t, hr, "employee", employeeID)

	var first, again idResponse
	srv.mustDo(t, http.MethodPost, "/api/v1/attendance/checkin", token, map[string]any{"workMode": "wfh"}, http.StatusCreated, &first)
	// A repeated check-in returns the existing record.
	srv.mustDo(t, http.MethodPost, "/api/v1/attendance/checkin", token, map[string]any{"workMode": "wfh"}, http.StatusOK, &again)
	if again.ID != first.ID {
		t.Fatalf("expected same attendance record, got %d and %d", first.ID, again.ID)
	}

	var out struct {
		CheckOutAt *time.Time `json:"checkOutAt"`
	}
	srv.mustDo(t, http.MethodPost, "/api/v1/attendance/checkout", token, map[string]any{}, http.StatusOK, &out)
	if out.CheckOutAt == nil {
		t.Fatal("expected checkout time")
	}

	status, _ := srv.do(t, http.MethodPost, "/api/v1/attendance/checkout", token, map[string]any{}, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected second checkout conflict, got %d", status)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	srv := startServer(t)

	status, env := srv.do(t, http.MethodGet, "/api/v1/employees", "", nil, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if env.Success || env.Error == nil {
		t.Fatal("expected error envelope")
	}

	status, _ = srv.do(t, http.MethodGet, "/api/v1/employees", "not-a-token", nil, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", status)
	}
}
