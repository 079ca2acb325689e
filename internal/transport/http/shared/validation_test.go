package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type samplePayload struct {
	Email    string  `json:"email" validate:"required,email"`
	WorkMode string  `json:"workMode" validate:"required,oneof=office wfh field"`
	Hours    float64 `json:"hours" validate:"gt=0,lte=24"`
	Note     string  `json:"note" validate:"max=5"`
}

func TestValidatorStructTags(t *testing.T) {
	v := NewValidator()
	v.Struct(samplePayload{Email: "nope", WorkMode: "remote", Hours: 30, Note: "toolong"})

	issues := v.Issues()
	got := map[string]string{}
	for _, issue := range issues {
		got[issue.Field] = issue.Reason
	}
	want := map[string]string{
		"email":    "must be a valid email address",
		"workMode": "must be one of: office, wfh, field",
		"hours":    "must be less than or equal to 24",
		"note":     "must be at most 5 characters",
	}
	for field, reason := range want {
		if got[field] != reason {
			t.Fatalf("field %s: expected %q, got %q (all: %+v)", field, reason, got[field], issues)
		}
	}
}

func TestValidatorStructValid(t *testing.T) {
	v := NewValidator()
	v.Struct(samplePayload{Email: "a@example.com", WorkMode: "wfh", Hours: 8})
	if v.HasIssues() {
		t.Fatalf("unexpected issues %+v", v.Issues())
	}
}

func TestRejectWritesValidationEnvelope(t *testing.T) {
	v := NewValidator()
	v.Required("name", " ", "is required")
	v.DateOrder("startDate", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), "endDate", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-9") {
		t.Fatal("expected rejection")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "validation_error" || len(body.Error.Details.Fields) != 3 {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Error.Details.Fields[0].Field != "endDate" {
		t.Fatalf("expected issues sorted by field, got %+v", body.Error.Details.Fields)
	}
}

func TestDateRangeDefaultsAndOrder(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	from, to, err := DateRange("", "", 7, now)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if !to.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) || !from.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected default range %s..%s", from, to)
	}
	if _, _, err := DateRange("2026-03-10", "2026-03-01", 7, now); err == nil {
		t.Fatal("expected inverted range error")
	}
}

func TestParseMonth(t *testing.T) {
	got, err := ParseMonth("2026-02")
	if err != nil || got.Month() != time.February || got.Day() != 1 {
		t.Fatalf("unexpected month %v %v", got, err)
	}
	if _, err := ParseMonth("02/2026"); err == nil {
		t.Fatal("expected error")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if ClientIP(req) != "10.0.0.1" {
		t.Fatalf("unexpected ip %q", ClientIP(req))
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if ClientIP(req) != "203.0.113.5" {
		t.Fatalf("unexpected forwarded ip %q", ClientIP(req))
	}
}

func TestParsePaginationClampsLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=900&offset=20", nil)
	p := ParsePagination(req, 100, 500)
	if p.Limit != 500 || p.Offset != 20 {
		t.Fatalf("unexpected pagination %+v", p)
	}
}
