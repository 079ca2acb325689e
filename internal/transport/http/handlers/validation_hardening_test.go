package handlers_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestValidationErrorsAreReported(t *testing.T) {
	srv := startServer(t)
	hr := srv.hrToken(t)

	tests := []struct {
		name    string
		method  string
		path    string
		payload any
	}{
		{name: "employee missing names", method: http.MethodPost, path: "/api/v1/employees", payload: map[string]any{"email": uniqueEmail("bad")}},
		{name: "employee bad email", method: http.MethodPost, path: "/api/v1/employees", payload: map[string]any{"firstName": "A", "lastName": "B", "email": "not-an-email"}},
		{name: "employee bad status", method: http.MethodPost, path: "/api/v1/employees", payload: map[string]any{"firstName": "A", "lastName": "B", "email": uniqueEmail("status"), "status": "retired"}},
		{name: "user unknown role", method: http.MethodPost, path: "/api/v1/users", payload: map[string]any{"email": uniqueEmail("role"), "password": testPassword, "role": "owner"}},
		{name: "payroll month out of range", method: http.MethodPost, path: "/api/v1/payroll/generate", payload: map[string]any{"year": 2030, "month": 13}},
		{name: "leave type without code", method: http.MethodPost, path: "/api/v1/leave/types", payload: map[string]any{"name": "Nameless"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, env := srv.do(t, tc.method, tc.path, hr, tc.payload, nil)
			if status != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", status)
			}
			if env.Error == nil || env.Error.Code != "validation_error" {
				t.Fatalf("expected validation_error, got %+v", env.Error)
			}
		})
	}
}

func TestMalformedBodiesRejected(t *testing.T) {
	srv := startServer(t)
	hr := srv.hrToken(t)

	req, err := http.NewRequest(http.MethodPost, srv.ts.URL+"/api/v1/employees", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+hr)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.client.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success {
		t.Fatal("expected failure envelope")
	}

	big := strings.Repeat("x", int(srv.cfg.MaxBodyBytes)+1)
	status, _ := srv.do(t, http.MethodPost, "/api/v1/employees", hr, map[string]any{"firstName": big, "lastName": "B", "email": uniqueEmail("big")}, nil)
	if status != http.StatusBadRequest && status != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected oversized body to be rejected, got %d", status)
	}
}

func TestInvalidPathIDs(t *testing.T) {
	srv := startServer(t)
	hr := srv.hrToken(t)

	for _, path := range []string{"/api/v1/employees/abc", "/api/v1/employees/-4", "/api/v1/leave/requests/0"} {
		status, _ := srv.do(t, http.MethodGet, path, hr, nil, nil)
		if status != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, status)
		}
	}

	status, env := srv.do(t, http.MethodGet, "/api/v1/does-not-exist", hr, nil, nil)
	if status != http.StatusNotFound || env.Error == nil {
		t.Fatalf("expected enveloped 404, got %d", status)
	}
}
