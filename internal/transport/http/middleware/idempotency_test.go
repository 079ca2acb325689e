package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"hrms/internal/domain/auth"
)

func TestRequestHashDeterministic(t *testing.T) {
	if RequestHash([]byte("payload")) != RequestHash([]byte("payload")) {
		t.Fatal("expected deterministic hash")
	}
	if RequestHash([]byte("payload")) == RequestHash([]byte("other")) {
		t.Fatal("expected different hash for different payload")
	}
}

func TestUnconfiguredStoreIsNoop(t *testing.T) {
	for _, store := range []*IdempotencyStore{nil, NewIdempotencyStore(nil)} {
		body, found, err := store.Lookup(context.Background(), 1, "payroll.generate", "k", "h")
		if err != nil || found || body != nil {
			t.Fatalf("expected no-op lookup, got %q %v %v", body, found, err)
		}
		if err := store.Remember(context.Background(), 1, "payroll.generate", "k", "h", []byte(`{}`)); err != nil {
			t.Fatalf("expected no-op remember, got %v", err)
		}
	}
}

func TestIdempotentPassesBodyThrough(t *testing.T) {
	var seen string
	h := Idempotent(NewIdempotencyStore(nil), "payroll.generate")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		seen = string(raw)
		w.WriteHeader(http.StatusCreated)
	}))

	ctx := context.WithValue(context.Background(), ctxKeyUser, auth.UserContext{UserID: 3})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/generate", bytes.NewBufferString(`{"year":2030,"month":1}`)).WithContext(ctx)
	req.Header.Set(IdempotencyHeader, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected handler status, got %d", rec.Code)
	}
	if seen != `{"year":2030,"month":1}` {
		t.Fatalf("expected body to reach handler, got %q", seen)
	}
}

func TestCaptureRecordsResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	c := &capture{ResponseWriter: rec}
	c.Write([]byte(`{"success":true}`))
	if c.status != http.StatusOK {
		t.Fatalf("expected implicit 200, got %d", c.status)
	}
	if c.body.String() != `{"success":true}` || rec.Body.String() != `{"success":true}` {
		t.Fatal("expected body to be both captured and written")
	}

	failed := &capture{ResponseWriter: httptest.NewRecorder()}
	failed.WriteHeader(http.StatusConflict)
	if failed.status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", failed.status)
	}
}
