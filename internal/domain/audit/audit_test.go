package audit

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestBuildBaseQueryFilters(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", Filter{
		Action:     "leave.approve",
		EntityType: "leave_request",
		ActorID:    7,
		From:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	for _, fragment := range []string{"action = $1", "entity_type = $2", "actor_id = $3", "created_at >= $4"} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected %q in %q", fragment, query)
		}
	}
	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(args))
	}
}

func TestBuildBaseQueryNoFilters(t *testing.T) {
	query, args := buildBaseQuery("SELECT 1", Filter{})
	if strings.Contains(query, "$") || len(args) != 0 {
		t.Fatalf("unexpected placeholders in %q", query)
	}
}

func TestRecordWithoutDatabaseIsNoop(t *testing.T) {
	var svc *Service
	if err := svc.Record(context.Background(), 1, "x", "y", "1", "", "", nil, map[string]int{"a": 1}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
