package telemetry

import (
	"context"
	"testing"
)

func TestNewTraceParentParses(t *testing.T) {
	tp := NewTraceParent()
	traceID, spanID, err := ParseTraceParent(tp)
	if err != nil {
		t.Fatalf("ParseTraceParent(%q): %v", tp, err)
	}
	if len(traceID) != 32 || len(spanID) != 16 {
		t.Fatalf("unexpected id lengths: trace=%d span=%d", len(traceID), len(spanID))
	}
}

func TestParseTraceParent_Malformed(t *testing.T) {
	for _, bad := range []string{"", "00", "00-short-aaaa-01", "00-4bf92f3577b34da6a3ce929d0e0e4736-short-01"} {
		if _, _, err := ParseTraceParent(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithTraceParent(context.Background(), "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	got, ok := FromContext(ctx)
	if !ok || got != "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01" {
		t.Fatalf("FromContext = %q, %v", got, ok)
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("empty context must not carry a traceparent")
	}
}
