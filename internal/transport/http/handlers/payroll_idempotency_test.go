package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"
)

type runSummary struct {
	Run struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	} `json:"run"`
	EmployeeCount int     `json:"employeeCount"`
	TotalNet      float64 `json:"totalNet"`
}

// generateFreshRun picks an unlocked far-future period so repeated runs
// against the same database do not trip over locked months.
func generateFreshRun(t *testing.T, srv *testServer, token, key string) (map[string]int, runSummary) {
	t.Helper()
	seed := int(time.Now().UnixNano() % 840)
	for attempt := 0; attempt < 10; attempt++ {
		n := (seed + attempt*37) % 840
		period := map[string]int{"year": 2030 + n/12, "month": 1 + n%12}
		status, env := srv.do(t, http.MethodPost, "/api/v1/payroll/generate", token, period, map[string]string{"Idempotency-Key": key})
		if status == http.StatusConflict && env.Error != nil && env.Error.Code == "payroll_locked" {
			continue
		}
		if status != http.StatusOK {
			t.Fatalf("generate: expected 200, got %d (%+v)", status, env.Error)
		}
		var summary runSummary
		if err := json.Unmarshal(env.Data, &summary); err != nil {
			t.Fatalf("decode summary: %v", err)
		}
		return period, summary
	}
	t.Fatal("no unlocked payroll period available")
	return nil, runSummary{}
}

func TestPayrollGenerateAndLockIdempotency(t *testing.T) {
	srv := startServer(t)
	hr := srv.hrToken(t)
	employeeID := srv.createEmployee(t, hr, nil)

	key := fmt.Sprintf("gen-%d", time.Now().UnixNano())
	period, first := generateFreshRun(t, srv, hr, key)
	if first.Run.ID == 0 || first.EmployeeCount == 0 {
		t.Fatalf("expected a run with slips, got %+v", first)
	}

	status, env := srv.do(t, http.MethodPost, "/api/v1/payroll/generate", hr, period, map[string]string{"Idempotency-Key": key})
	if status != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d", status)
	}
	var replayed runSummary
	if err := json.Unmarshal(env.Data, &replayed); err != nil {
		t.Fatalf("decode replay: %v", err)
	}
	if replayed.Run.ID != first.Run.ID || replayed.TotalNet != first.TotalNet {
		t.Fatalf("expected replayed summary, got %+v", replayed)
	}

	other := map[string]int{"year": period["year"], "month": period["month"]%12 + 1}
	status, env = srv.do(t, http.MethodPost, "/api/v1/payroll/generate", hr, other, map[string]string{"Idempotency-Key": key})
	if status != http.StatusConflict || env.Error == nil || env.Error.Code != "idempotency_conflict" {
		t.Fatalf("expected idempotency conflict for a different body, got %d", status)
	}

	lockPath := fmt.Sprintf("/api/v1/payroll/runs/%d/lock", first.Run.ID)
	lockKey := fmt.Sprintf("lock-%d", time.Now().UnixNano())
	var locked struct {
		Run struct {
			Status string `json:"status"`
		} `json:"run"`
		Published int `json:"published"`
	}
	status, env = srv.do(t, http.MethodPost, lockPath, hr, nil, map[string]string{"Idempotency-Key": lockKey})
	if status != http.StatusOK {
		t.Fatalf("lock: expected 200, got %d (%+v)", status, env.Error)
	}
	if err := json.Unmarshal(env.Data, &locked); err != nil {
		t.Fatalf("decode lock: %v", err)
	}
	if locked.Run.Status != "locked" || locked.Published == 0 {
		t.Fatalf("expected locked run with published slips, got %+v", locked)
	}

	// Same key replays instead of failing on the already locked run.
	status, _ = srv.do(t, http.MethodPost, lockPath, hr, nil, map[string]string{"Idempotency-Key": lockKey})
	if status != http.StatusOK {
		t.Fatalf("lock replay: expected 200, got %d", status)
	}
	status, env = srv.do(t, http.MethodPost, lockPath, hr, nil, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected relock conflict, got %d", status)
	}

	status, env = srv.do(t, http.MethodPost, "/api/v1/payroll/generate", hr, period, nil)
	if status != http.StatusConflict || env.Error == nil || env.Error.Code != "payroll_locked" {
		t.Fatalf("expected regenerate of locked run to fail, got %d", status)
	}

	var slips []struct {
		ID         int64 `json:"id"`
		EmployeeID int64 `json:"employeeId"`
	}
	srv.mustDo(t, http.MethodGet, fmt.Sprintf("/api/v1/payroll/runs/%d/slips", first.Run.ID), hr, nil, http.StatusOK, &slips)
	var slipID int64
	for _, slip := range slips {
		if slip.EmployeeID == employeeID {
			slipID = slip.ID
		}
	}
	if slipID == 0 {
		t.Fatal("expected a payslip for the new employee")
	}

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/v1/payroll/slips/%d/pdf", srv.ts.URL, slipID), nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+hr)
	resp, err := srv.client.Do(req)
	if err != nil {
		t.Fatalf("download pdf: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected pdf 200, got %d", resp.StatusCode)
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		t.Fatal("expected a PDF document")
	}
}

func TestEmployeeCannotRunPayroll(t *testing.T) {
	srv := startServer(t)
	hr := srv.hrToken(t)
	employeeID := srv.createEmployee(t, hr, nil)
	token := srv.createLogin(t, hr, "employee", employeeID)

	status, _ := srv.do(t, http.MethodPost, "/api/v1/payroll/generate", token, map[string]int{"year": 2031, "month": 1}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}
	srv.mustDo(t, http.MethodGet, "/api/v1/payroll/slips/me", token, nil, http.StatusOK, nil)
}
