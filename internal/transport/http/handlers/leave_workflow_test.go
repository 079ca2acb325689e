package handlers_test

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"
)

func applyLeave(t *testing.T, srv *testServer, token string, typeID int64, start time.Time, days int) idResponse {
	t.Helper()
	var req idResponse
	srv.mustDo(t, http.MethodPost, "/api/v1/leave/requests", token, map[string]any{
		"leaveTypeId": typeID,
		"startDate":   start.Format(time.DateOnly),
		"endDate":     start.AddDate(0, 0, days-1).Format(time.DateOnly),
	}, http.StatusCreated, &req)
	return req
}

func TestManagerThenHRApproval(t *testing.T) {
	srv := startServer(t)
	hr := srv.hrToken(t)

	managerID := srv.createEmployee(t, hr, nil)
	manager := srv.createLogin(t, hr, "manager", managerID)
	employeeID := srv.createEmployee(t, hr, &managerID)
	employee := srv.createLogin(t, hr, "employee", employeeID)
	typeID := srv.createLeaveType(t, hr, true)

	req := applyLeave(t, srv, employee, typeID, nextWeekday(), 1)
	if req.Status != "pending" {
		t.Fatalf("expected pending, got %s", req.Status)
	}

	var listed []idResponse
	srv.mustDo(t, http.MethodGet, "/api/v1/leave/requests?status=pending", manager, nil, http.StatusOK, &listed)
	seen := false
	for _, item := range listed {
		if item.ID == req.ID {
			seen = true
		}
	}
	if !seen {
		t.Fatal("expected manager to see the team request")
	}

	var step idResponse
	srv.mustDo(t, http.MethodPost, fmt.Sprintf("/api/v1/leave/requests/%d/approve", req.ID), manager, map[string]any{}, http.StatusOK, &step)
	if step.Status != "pending_hr" {
		t.Fatalf("expected pending_hr after manager approval, got %s", step.Status)
	}

	// The second stage belongs to HR only.
	status, env := srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/leave/requests/%d/approve", req.ID), manager, map[string]any{}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected manager to be blocked at HR stage, got %d", status)
	}
	if env.Error == nil || env.Error.Code != "hr_approval_required" {
		t.Fatalf("expected hr_approval_required, got %+v", env.Error)
	}

	srv.mustDo(t, http.MethodPost, fmt.Sprintf("/api/v1/leave/requests/%d/approve", req.ID), hr, map[string]any{}, http.StatusOK, &step)
	if step.Status != "approved" {
		t.Fatalf("expected approved, got %s", step.Status)
	}
}

func TestManagerCannotApproveOutsideTeam(t *testing.T) {
	srv := startServer(t)
	hr := srv.hrToken(t)

	managerID := srv.createEmployee(t, hr, nil)
	manager := srv.createLogin(t, hr, "manager", managerID)
	otherManager := srv.createEmployee(t, hr, nil)
	employeeID := srv.createEmployee(t, hr, &otherManager)
	employee := srv.createLogin(t, hr, "employee", employeeID)
	typeID := srv.createLeaveType(t, hr, false)

	req := applyLeave(t, srv, employee, typeID, nextWeekday(), 1)

	status, _ := srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/leave/requests/%d/approve", req.ID), manager, map[string]any{}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}

	status, _ = srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/leave/balances?employeeId=%d", employeeID), manager, nil, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected balances outside team to be forbidden, got %d", status)
	}
}

func TestLeaveOverlapAndCancel(t *testing.T) {
	srv := startServer(t)
	hr := srv.hrToken(t)

	employeeID := srv.createEmployee(t, hr, nil)
	employee := srv.createLogin(t, hr, "employee", employeeID)
	typeID := srv.createLeaveType(t, hr, false)

	start := nextWeekday()
	req := applyLeave(t, srv, employee, typeID, start, 3)

	status, env := srv.do(t, http.MethodPost, "/api/v1/leave/requests", employee, map[string]any{
		"leaveTypeId": typeID,
		"startDate":   start.AddDate(0, 0, 1).Format(time.DateOnly),
		"endDate":     start.AddDate(0, 0, 1).Format(time.DateOnly),
	}, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected overlap conflict, got %d", status)
	}
	if env.Error == nil || env.Error.Code != "leave_overlap" {
		t.Fatalf("expected leave_overlap, got %+v", env.Error)
	}

	var cancelled idResponse
	srv.mustDo(t, http.MethodPost, fmt.Sprintf("/api/v1/leave/requests/%d/cancel", req.ID), employee, map[string]any{}, http.StatusOK, &cancelled)
	if cancelled.Status != "cancelled" {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	// Cancelled requests free the dates again.
	applyLeave(t, srv, employee, typeID, start.AddDate(0, 0, 1), 1)

	status, _ = srv.do(t, http.MethodPost, fmt.Sprintf("/api/v1/leave/requests/%d/approve", req.ID), hr, map[string]any{}, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected approving a cancelled request to conflict, got %d", status)
	}
}

func TestConcurrentApplyCannotOverspendBalance(t *testing.T) {
	srv := startServer(t)
	hr := srv.hrToken(t)

	employeeID := srv.createEmployee(t, hr, nil)
	employee := srv.createLogin(t, hr, "employee", employeeID)
	typeID := srv.createLeaveType(t, hr, false)
	srv.mustDo(t, http.MethodPut, fmt.Sprintf("/api/v1/leave/policies/%d", typeID), hr, map[string]any{
		"accrualRate":    1,
		"accrualPeriod":  "monthly",
		"carryOverLimit": 5,
		"allowNegative":  false,
	}, http.StatusOK, nil)
	srv.mustDo(t, http.MethodPost, "/api/v1/leave/balances/adjust", hr, map[string]any{
		"employeeId":  employeeID,
		"leaveTypeId": typeID,
		"delta":       1,
		"reason":      "opening balance",
	}, http.StatusOK, nil)

	start := nextWeekday()
	statuses := make([]int, 2)
	codes := make([]string, 2)
	var wg sync.WaitGroup
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			day := start.AddDate(0, 0, i).Format(time.DateOnly)
			status, env := srv.do(t, http.MethodPost, "/api/v1/leave/requests", employee, map[string]any{
				"leaveTypeId": typeID,
				"startDate":   day,
				"endDate":     day,
			}, nil)
			statuses[i] = status
			if env.Error != nil {
				codes[i] = env.Error.Code
			}
		}(i)
	}
	wg.Wait()

	created, rejected := 0, 0
	for i, status := range statuses {
		switch {
		case status == http.StatusCreated:
			created++
		case status == http.StatusUnprocessableEntity && codes[i] == "insufficient_balance":
			rejected++
		default:
			t.Fatalf("unexpected response %d %q", status, codes[i])
		}
	}
	if created != 1 || rejected != 1 {
		t.Fatalf("expected one created and one rejected, got %d and %d", created, rejected)
	}
}
