package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{0, "Unable to reach the server. Check your connection."},
		{400, "The request was invalid. Please check your input."},
		{401, "Your session has expired. Please log in again."},
		{403, "You do not have permission to perform this action."},
		{404, "The requested resource was not found."},
		{409, "This action conflicts with existing data."},
		{422, "Some fields could not be processed."},
		{500, "Something went wrong on our side. Please try again later."},
		{503, "The service is temporarily unavailable."},
		{418, "An unexpected error occurred."},
		{502, "An unexpected error occurred."},
	}
	for _, tc := range tests {
		if got := StatusMessage(tc.status); got != tc.want {
			t.Fatalf("status %d: expected %q, got %q", tc.status, tc.want, got)
		}
	}
}

func TestFailWithDetailsEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	FailWithDetails(rec, http.StatusConflict, "overlap", "leave overlaps", map[string]any{"id": 4}, "req-1")

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success || env.Error == nil {
		t.Fatalf("expected failure envelope, got %+v", env)
	}
	if env.Error.Code != "overlap" || env.Error.UserMessage != StatusMessage(http.StatusConflict) {
		t.Fatalf("unexpected error body %+v", env.Error)
	}
	if env.RequestID != "req-1" {
		t.Fatalf("expected request id, got %q", env.RequestID)
	}
}

func TestFailStatusUsesGenericCode(t *testing.T) {
	rec := httptest.NewRecorder()
	FailStatus(rec, http.StatusNotFound, "")
	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "not_found" || env.Error.Message != "Not Found" {
		t.Fatalf("unexpected error %+v", env.Error)
	}
}
