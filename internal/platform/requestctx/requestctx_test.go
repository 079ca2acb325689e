package requestctx

import (
	"context"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}

func TestActor(t *testing.T) {
	ctx := WithActor(context.Background(), "user-9")
	if got := GetActor(ctx); got != "user-9" {
		t.Fatalf("expected user-9, got %q", got)
	}
}
