package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordUpdatesCountersAndSnapshot(t *testing.T) {
	c := New()
	c.Record("GET", "/api/v1/holidays", 200, 20*time.Millisecond)
	c.Record("POST", "/api/v1/attendance/checkin", 500, 10*time.Millisecond)
	c.Record("POST", "/api/v1/auth/login", 429, time.Millisecond)

	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/v1/holidays", "200")); got != 1 {
		t.Fatalf("expected 1 holiday request, got %v", got)
	}
	snap := c.Snapshot()
	if snap["requestsTotal"].(uint64) != 3 || snap["errorsTotal"].(uint64) != 1 || snap["rateLimitedTotal"].(uint64) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestHandlerExposesDomainEvents(t *testing.T) {
	c := New()
	c.Event("attendance_checkin")
	c.JobRun("leave_accrual", "completed")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	if !strings.Contains(text, `hrms_domain_events_total{event="attendance_checkin"} 1`) {
		t.Fatalf("missing domain event metric:\n%s", text)
	}
	if !strings.Contains(text, `hrms_job_runs_total{job="leave_accrual",status="completed"} 1`) {
		t.Fatalf("missing job metric:\n%s", text)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.Record("GET", "/", 200, time.Millisecond)
	c.Event("x")
	c.JobRun("x", "failed")
	if len(c.Snapshot()) != 0 {
		t.Fatal("expected empty snapshot")
	}
}
