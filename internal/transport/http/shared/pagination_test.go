package shared

import (
	"net/http/httptest"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		want  Pagination
	}{
		{"", Pagination{Limit: 100, Offset: 0}},
		{"limit=20&offset=40", Pagination{Limit: 20, Offset: 40}},
		{"limit=9000", Pagination{Limit: 500, Offset: 0}},
		{"limit=0&offset=-3", Pagination{Limit: 100, Offset: 0}},
		{"limit=abc&offset=x", Pagination{Limit: 100, Offset: 0}},
		{"page=3&pageSize=25", Pagination{Limit: 25, Offset: 50}},
		{"page=2&limit=10&offset=999", Pagination{Limit: 10, Offset: 10}},
		{"page=0&offset=5", Pagination{Limit: 100, Offset: 5}},
	}
	for _, tc := range tests {
		r := httptest.NewRequest("GET", "/api/v1/employees?"+tc.query, nil)
		if got := ParsePagination(r, 100, 500); got != tc.want {
			t.Fatalf("%q: expected %+v, got %+v", tc.query, tc.want, got)
		}
	}
}

func TestSetTotal(t *testing.T) {
	rec := httptest.NewRecorder()
	SetTotal(rec, 42)
	if rec.Header().Get("X-Total-Count") != "42" {
		t.Fatalf("unexpected header %q", rec.Header().Get("X-Total-Count"))
	}
}
