package context

import (
	"context"
	"testing"
)

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "rid-1")
	if got := GetRequestID(ctx); got != "rid-1" {
		t.Fatalf("expected rid-1, got %q", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	//nolint:staticcheck // nil context is handled explicitly
	if got := GetRequestID(nil); got != "" {
		t.Fatalf("expected empty for nil ctx, got %q", got)
	}
}

func TestWithClient(t *testing.T) {
	ctx := WithClient(context.Background(), "10.0.0.1", "curl/8")
	if GetClientIP(ctx) != "10.0.0.1" || GetUserAgent(ctx) != "curl/8" {
		t.Fatalf("unexpected client values: %q %q", GetClientIP(ctx), GetUserAgent(ctx))
	}
}
