package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"hrms/internal/app/server"
	"hrms/internal/platform/config"
)

const testPassword = "Str0ng!Passw0rd"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	app    *server.App
	ts     *httptest.Server
	client *http.Client
	cfg    config.Config
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return config.Config{
		DatabaseURL:                dbURL,
		MigrationsDir:              "../../../../migrations",
		JWTSecret:                  "test-secret",
		JWTTTL:                     time.Hour,
		DataEncryptionKey:          "0123456789abcdef0123456789abcdef",
		Environment:                "test",
		StorageDir:                 t.TempDir(),
		SeedAdminEmail:             "hr@test.local",
		SeedAdminPassword:          testPassword,
		SeedSystemAdminEmail:       "sysadmin@test.local",
		SeedSystemAdminPassword:    testPassword,
		EmailFrom:                  "no-reply@test.local",
		EmailProvider:              "smtp",
		RunMigrations:              true,
		RunSeed:                    true,
		MaxBodyBytes:               1048576,
		RateLimitPerMinute:         1000,
		QueueBackend:               "memory",
		CheckInDedupWindow:         time.Minute,
		OfficeStart:                "09:30",
		LateGrace:                  15 * time.Minute,
		FullDayHours:               8,
		HalfDayHours:               4,
		LeaveAccrualInterval:       24 * time.Hour,
		ComplianceReminderInterval: 24 * time.Hour,
		AnnouncementExpiryInterval: time.Hour,
		MetricsEnabled:             true,
	}
}

func startServer(t *testing.T) *testServer {
	t.Helper()
	cfg := testConfig(t)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	ts := httptest.NewServer(app.Router)
	t.Cleanup(func() {
		ts.Close()
		app.Close()
	})
	return &testServer{app: app, ts: ts, client: ts.Client(), cfg: cfg}
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

func (s *testServer) do(t *testing.T, method, path, token string, payload any, headers map[string]string) (int, envelope) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: decode response %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, env
}

// mustDo fails the test unless the response status matches want, then
// decodes the data field into out when out is non-nil.
func (s *testServer) mustDo(t *testing.T, method, path, token string, payload any, want int, out any) {
	t.Helper()
	status, env := s.do(t, method, path, token, payload, nil)
	if status != want {
		t.Fatalf("%s %s: expected %d, got %d (%+v)", method, path, want, status, env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	var result struct {
		Token string `json:"token"`
	}
	s.mustDo(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password}, http.StatusOK, &result)
	if result.Token == "" {
		t.Fatal("expected login token")
	}
	return result.Token
}

func (s *testServer) hrToken(t *testing.T) string {
	return s.login(t, s.cfg.SeedAdminEmail, s.cfg.SeedAdminPassword)
}

type idResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func (s *testServer) createEmployee(t *testing.T, token string, managerID *int64) int64 {
	t.Helper()
	payload := map[string]any{
		"firstName":     "Test",
		"lastName":      "Employee",
		"email":         uniqueEmail("employee"),
		"dateOfJoining": "2024-01-15",
		"salary":        60000,
		"bankAccount":   "GB29NWBK60161331926819",
	}
	if managerID != nil {
		payload["managerId"] = *managerID
	}
	var created idResponse
	s.mustDo(t, http.MethodPost, "/api/v1/employees", token, payload, http.StatusCreated, &created)
	if created.ID == 0 {
		t.Fatal("expected employee id")
	}
	return created.ID
}

// createLogin provisions a user account bound to an employee and signs in.
func (s *testServer) createLogin(t *testing.T, hrToken, role string, employeeID int64) string {
	t.Helper()
	email := uniqueEmail(role)
	payload := map[string]any{"email": email, "password": testPassword, "role": role, "employeeId": employeeID}
	s.mustDo(t, http.MethodPost, "/api/v1/users", hrToken, payload, http.StatusCreated, nil)
	return s.login(t, email, testPassword)
}

func (s *testServer) createLeaveType(t *testing.T, token string, requiresHR bool) int64 {
	t.Helper()
	code := fmt.Sprintf("T%d", time.Now().UnixNano()%1_000_000_000)
	var lt idResponse
	s.mustDo(t, http.MethodPost, "/api/v1/leave/types", token, map[string]any{
		"code":              code,
		"name":              "Test Leave " + code,
		"isPaid":            true,
		"annualEntitlement": 12,
	}, http.StatusCreated, &lt)
	s.mustDo(t, http.MethodPut, fmt.Sprintf("/api/v1/leave/policies/%d", lt.ID), token, map[string]any{
		"accrualRate":        1,
		"accrualPeriod":      "monthly",
		"carryOverLimit":     5,
		"allowNegative":      true,
		"requiresHrApproval": requiresHR,
	}, http.StatusOK, nil)
	return lt.ID
}

// nextWeekday returns a Monday at least a month out so requests avoid
// weekends and do not collide with earlier runs.
func nextWeekday() time.Time {
	day := time.Now().UTC().AddDate(0, 1, int(time.Now().UnixNano()%200))
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}
	return day
}
