package authhandler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBuildResetLink(t *testing.T) {
	tests := []struct {
		baseURL string
		token   string
		want    string
	}{
		{"", "abc", "http://localhost:8080/reset?token=abc"},
		{"https://hr.example.com", "t1", "https://hr.example.com/reset?token=t1"},
		{"https://hr.example.com/app/", "t2", "https://hr.example.com/app/reset?token=t2"},
		{"  https://hr.example.com/portal  ", "t3", "https://hr.example.com/portal/reset?token=t3"},
		{"not a url", "abc", "http://localhost:8080/reset?token=abc"},
		{"https://hr.example.com", "a+b/c=", "https://hr.example.com/reset?token=a%2Bb%2Fc%3D"},
	}
	for _, tc := range tests {
		if got := buildResetLink(tc.baseURL, tc.token); got != tc.want {
			t.Fatalf("buildResetLink(%q, %q) = %q, want %q", tc.baseURL, tc.token, got, tc.want)
		}
	}
}

func TestResetEmailMentionsLinkAndExpiry(t *testing.T) {
	link := "https://hr.example.com/reset?token=abc"
	for ttl, want := range map[time.Duration]string{
		2 * time.Hour:    "expires in 2 hour(s)",
		20 * time.Minute: "expires in 1 hour(s)",
	} {
		msg := buildResetEmailMessage(link, ttl)
		if !strings.Contains(msg, link) || !strings.Contains(msg, want) {
			t.Fatalf("ttl %v: unexpected message %q", ttl, msg)
		}
	}
}

// Input checks run before the service is touched, so a zero Handler is enough.
func TestLoginAndResetRejectBadInput(t *testing.T) {
	h := &Handler{}
	tests := []struct {
		name    string
		handler http.HandlerFunc
		body    string
		code    string
	}{
		{"login malformed", h.HandleLogin, `{"email":`, "invalid_payload"},
		{"login missing password", h.HandleLogin, `{"email":"a@example.com"}`, "validation_error"},
		{"login bad email", h.HandleLogin, `{"email":"nope","password":"x"}`, "validation_error"},
		{"reset malformed", h.HandleResetPassword, `[]`, "invalid_payload"},
		{"reset missing token", h.HandleResetPassword, `{"newPassword":"Str0ngPass"}`, "validation_error"},
		{"request reset malformed", h.HandleRequestReset, `{`, "invalid_payload"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/x", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			tc.handler(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			var env struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != tc.code {
				t.Fatalf("expected %s, got %s", tc.code, env.Error.Code)
			}
		})
	}
}
