package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hrms/internal/domain/auth"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func jsonRequest(method, target, body, remote string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remote
	return req
}

func TestLimiterTakeRefills(t *testing.T) {
	l := newLimiter(2, time.Second, nil)
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		if _, _, ok := l.take("k", start); !ok {
			t.Fatalf("expected token %d to be available", i+1)
		}
	}
	_, wait, ok := l.take("k", start)
	if ok {
		t.Fatal("expected empty bucket")
	}
	if wait != 500*time.Millisecond {
		t.Fatalf("expected 500ms wait, got %v", wait)
	}

	if _, _, ok := l.take("k", start.Add(250*time.Millisecond)); ok {
		t.Fatal("expected half a token to be insufficient")
	}
	if _, _, ok := l.take("k", start.Add(500*time.Millisecond)); !ok {
		t.Fatal("expected a refilled token")
	}
	if _, _, ok := l.take("other", start); !ok {
		t.Fatal("expected keys to be independent")
	}
}

func TestLimiterSweepsIdleBuckets(t *testing.T) {
	l := newLimiter(1, time.Second, nil)
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	l.take("a", start)
	l.take("b", start)
	l.take("c", start.Add(2*time.Second))
	if len(l.buckets) != 1 {
		t.Fatalf("expected idle buckets to be dropped, have %d", len(l.buckets))
	}
}

func TestRateLimitUsesUserKeyBeforeIP(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())
	userCtx := context.WithValue(context.Background(), ctxKeyUser, auth.UserContext{UserID: 1})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/runs/7/lock", nil).WithContext(userCtx)
	first.RemoteAddr = "198.51.100.11:2222"
	if rec := serve(limited, first); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/runs/7/lock", nil).WithContext(userCtx)
	second.RemoteAddr = "198.51.100.12:3333"
	if rec := serve(limited, second); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected user key to throttle across IPs, got %d", rec.Code)
	}
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())

	if rec := serve(limited, jsonRequest(http.MethodPost, "/api/v1/auth/request-reset", `{"email":"a@example.com"}`, "203.0.113.10:4444")); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	rec := serve(limited, jsonRequest(http.MethodPost, "/api/v1/auth/request-reset", `{"email":"b@example.com"}`, "203.0.113.10:5555"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected ip key to throttle, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" || rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatal("expected retry metadata headers")
	}
}

func TestRateLimitRecoversAfterWindow(t *testing.T) {
	limited := RateLimit(1, 40*time.Millisecond)(noContent())
	req := func() *http.Request {
		return jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"email":"a@example.com"}`, "192.0.2.20:1111")
	}

	if rec := serve(limited, req()); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	if rec := serve(limited, req()); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec.Code)
	}
	time.Sleep(50 * time.Millisecond)
	if rec := serve(limited, req()); rec.Code != http.StatusNoContent {
		t.Fatalf("expected request after refill to pass, got %d", rec.Code)
	}
}

func TestAuthEmailKeyPreservesBody(t *testing.T) {
	req := jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"email":" Ana@Example.com ","password":"x"}`, "192.0.2.1:1")
	if key := AuthEmailOrIPKey("email")(req); key != "email:ana@example.com" {
		t.Fatalf("unexpected key %q", key)
	}
	var buf bytes.Buffer
	buf.ReadFrom(req.Body)
	if buf.String() != `{"email":" Ana@Example.com ","password":"x"}` {
		t.Fatalf("body not restored: %q", buf.String())
	}

	plain := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	plain.RemoteAddr = "192.0.2.9:1"
	if key := AuthEmailOrIPKey("email")(plain); key != "ip:192.0.2.9" {
		t.Fatalf("expected ip fallback, got %q", key)
	}
}

func TestSensitiveMutationRateLimitScope(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/dashboard/hr", nil)
		req.RemoteAddr = "198.51.100.40:8888"
		if rec := serve(limited, req); rec.Code != http.StatusNoContent {
			t.Fatalf("expected read request %d to bypass sensitive limits, got %d", i+1, rec.Code)
		}
	}

	userCtx := context.WithValue(context.Background(), ctxKeyUser, auth.UserContext{UserID: 2, RoleName: auth.RoleHR})
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/runs/7/lock", nil).WithContext(userCtx)
		req.RemoteAddr = "198.51.100.41:9999"
		rec := serve(limited, req)
		if i < 2 && rec.Code != http.StatusNoContent {
			t.Fatalf("expected sensitive request %d to pass, got %d", i+1, rec.Code)
		}
		if i == 2 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected third sensitive request to be throttled, got %d", rec.Code)
		}
	}
}

func TestSensitiveRateScope(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   sensitiveScope
	}{
		{http.MethodPost, "/api/v1/auth/login", sensitiveScopeAuth},
		{http.MethodPost, "/api/v1/auth/mfa/enable", sensitiveScopeAuth},
		{http.MethodPost, "/api/v1/payroll/generate", sensitiveScopeActor},
		{http.MethodPost, "/api/v1/payroll/runs/3/lock", sensitiveScopeActor},
		{http.MethodPost, "/api/v1/leave/requests/9/approve", sensitiveScopeActor},
		{http.MethodPut, "/api/v1/users/4/role", sensitiveScopeActor},
		{http.MethodPost, "/api/v1/users/", sensitiveScopeActor},
		{http.MethodPost, "/api/v1/admin/jobs/leave_accrual/run", sensitiveScopeActor},
		{http.MethodGet, "/api/v1/payroll/generate", sensitiveScopeNone},
		{http.MethodPost, "/api/v1/holidays", sensitiveScopeNone},
		{http.MethodPost, "/api/v1/leave/requests/9/cancel", sensitiveScopeNone},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if got := sensitiveRateScope(req); got != tc.want {
			t.Fatalf("%s %s: expected %q, got %q", tc.method, tc.path, tc.want, got)
		}
	}
}
