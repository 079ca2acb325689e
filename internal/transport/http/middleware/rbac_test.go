package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hrms/internal/domain/auth"
)

type mapPermissions map[int64][]string

func (m mapPermissions) HasPermission(_ context.Context, roleID int64, permission string) (bool, error) {
	if roleID < 0 {
		return false, errors.New("db down")
	}
	for _, p := range m[roleID] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

func TestRequirePermission(t *testing.T) {
	perms := mapPermissions{1: {auth.PermLeaveApprove}}
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guarded := RequirePermission(auth.PermLeaveApprove, perms)(ok)

	tests := []struct {
		name   string
		user   *auth.UserContext
		status int
	}{
		{name: "anonymous", status: http.StatusUnauthorized},
		{name: "allowed", user: &auth.UserContext{UserID: 1, RoleID: 1}, status: http.StatusNoContent},
		{name: "denied", user: &auth.UserContext{UserID: 2, RoleID: 2}, status: http.StatusForbidden},
		{name: "store error", user: &auth.UserContext{UserID: 3, RoleID: -1}, status: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/leave/requests/1/approve", nil)
			if tc.user != nil {
				req = req.WithContext(WithUser(req.Context(), *tc.user))
			}
			rec := httptest.NewRecorder()
			guarded.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestRequireAnyPermission(t *testing.T) {
	perms := mapPermissions{
		1: {auth.PermPayrollManage},
		2: {auth.PermReportsRead},
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guarded := RequireAnyPermission(perms, auth.PermPayrollManage, auth.PermReportsRead)(ok)

	for roleID, want := range map[int64]int{1: http.StatusNoContent, 2: http.StatusNoContent, 3: http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/payroll", nil)
		req = req.WithContext(WithUser(req.Context(), auth.UserContext{UserID: roleID, RoleID: roleID}))
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("role %d: expected %d, got %d", roleID, want, rec.Code)
		}
	}
}

func TestCan(t *testing.T) {
	perms := mapPermissions{1: {auth.PermTicketsManage}}
	if allowed, err := Can(context.Background(), perms, auth.PermTicketsManage); allowed || err != nil {
		t.Fatalf("expected anonymous caller to hold nothing, got %v %v", allowed, err)
	}
	ctx := WithUser(context.Background(), auth.UserContext{UserID: 9, RoleID: 1})
	if allowed, err := Can(ctx, perms, auth.PermTicketsManage); !allowed || err != nil {
		t.Fatalf("expected permission, got %v %v", allowed, err)
	}
	if allowed, _ := Can(ctx, nil, auth.PermTicketsManage); allowed {
		t.Fatal("expected nil store to deny")
	}
}

func TestRecovererAnswersWithEnvelope(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatal("expected json envelope")
	}
}

func TestBodyLimitRejectsLargeDeclaredBody(t *testing.T) {
	handler := BodyLimit(10)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.ContentLength = 100
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}
