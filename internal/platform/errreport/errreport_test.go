package errreport

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDisabledReporterIsSafe(t *testing.T) {
	r := New("", "test", "dev")
	if r.Enabled() {
		t.Fatal("reporter without token must be disabled")
	}
	r.Panic(httptest.NewRequest("GET", "/x", nil), "boom", nil)
	r.Error(errors.New("job failed"), map[string]any{"job": "leave_accrual"})
	r.Error(nil, nil)
	r.Flush(10 * time.Millisecond)

	var nilReporter *Reporter
	nilReporter.Error(errors.New("x"), nil)
}
