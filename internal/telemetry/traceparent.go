// Package telemetry propagates W3C trace context between the interaction
// gateway and the queue worker so a VM action can be correlated with the
// interaction that requested it.
package telemetry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

type contextKey struct{}

// NewTraceParent returns a fresh sampled W3C traceparent header value.
func NewTraceParent() string {
	traceID := make([]byte, 16)
	spanID := make([]byte, 8)
	_, _ = rand.Read(traceID)
	_, _ = rand.Read(spanID)
	return fmt.Sprintf("00-%s-%s-01", hex.EncodeToString(traceID), hex.EncodeToString(spanID))
}

// ParseTraceParent splits a traceparent header into its trace and span IDs.
func ParseTraceParent(value string) (traceID, spanID string, err error) {
	parts := strings.Split(value, "-")
	if len(parts) != 4 || len(parts[1]) != 32 || len(parts[2]) != 16 {
		return "", "", fmt.Errorf("malformed traceparent %q", value)
	}
	return parts[1], parts[2], nil
}

// WithTraceParent stores a traceparent on the context for later extraction.
func WithTraceParent(ctx context.Context, value string) context.Context {
	return context.WithValue(ctx, contextKey{}, value)
}

// FromContext returns the traceparent stored on the context, if any.
func FromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(contextKey{}).(string)
	return value, ok && value != ""
}

// StartSpan returns a logger enriched with the trace context derived from
// parent and a done function logging span completion. A malformed or empty
// parent starts a fresh trace; work is never dropped for a bad header.
func StartSpan(log zerolog.Logger, name, parent string) (zerolog.Logger, func()) {
	traceID, parentSpanID, err := ParseTraceParent(parent)
	if err != nil {
		traceID, parentSpanID, _ = ParseTraceParent(NewTraceParent())
	}

	spanID := make([]byte, 8)
	_, _ = rand.Read(spanID)

	spanLog := log.With().
		Str("span", name).
		Str("trace_id", traceID).
		Str("span_id", hex.EncodeToString(spanID)).
		Str("parent_span_id", parentSpanID).
		Logger()
	spanLog.Debug().Msg("span started")
	return spanLog, func() { spanLog.Debug().Msg("span ended") }
}
