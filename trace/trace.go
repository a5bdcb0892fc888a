// Package trace carries request-correlation identifiers through contexts
// and supplies the values the client stamps onto outbound headers: a
// per-request id for the X-Request-ID header, plus W3C Trace Context
// (traceparent/tracestate) propagation.
package trace

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// ctxKey keeps the carrier keys private to this package.
type ctxKey int

const (
	requestIDKey ctxKey = iota
	traceParentKey
	traceStateKey
)

// Header names stamped by the client.
const (
	// HeaderXRequestID carries the per-request correlation id.
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C Trace Context "traceparent" header.
	HeaderTraceParent = "traceparent"
	// HeaderTraceState is the W3C Trace Context "tracestate" header.
	HeaderTraceState = "tracestate"
)

// WithTraceID attaches a request id to the context. Calls issued with the
// returned context reuse it instead of generating a fresh one.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, requestIDKey, traceID)
}

// IDFromContext returns the request id carried by the context, if any.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// EnsureTraceID returns the context's request id, generating a fresh uuid
// when none is present.
func EnsureTraceID(ctx context.Context) string {
	if id, ok := IDFromContext(ctx); ok {
		return id
	}
	return uuid.New().String()
}

// WithTraceParent attaches a W3C traceparent value to the context.
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return context.WithValue(ctx, traceParentKey, traceParent)
}

// ParentFromContext returns the traceparent carried by the context, if any.
func ParentFromContext(ctx context.Context) (string, bool) {
	tp, ok := ctx.Value(traceParentKey).(string)
	return tp, ok && tp != ""
}

// EnsureTraceParent returns the context's traceparent, generating a fresh
// one when none is present, so every outbound call is traceable even when
// the caller carries no trace context.
func EnsureTraceParent(ctx context.Context) string {
	if tp, ok := ParentFromContext(ctx); ok {
		return tp
	}
	return GenerateTraceParent()
}

// WithTraceState attaches a W3C tracestate value to the context.
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return context.WithValue(ctx, traceStateKey, traceState)
}

// StateFromContext returns the tracestate carried by the context, if any.
// Unlike traceparent, tracestate is never generated: it only propagates.
func StateFromContext(ctx context.Context) (string, bool) {
	ts, ok := ctx.Value(traceStateKey).(string)
	return ts, ok && ts != ""
}

// GenerateTraceParent creates a W3C traceparent header value,
// version-00 with the sampled flag: 00-<trace-id:32>-<span-id:16>-01.
// All-zero trace and span ids are invalid and never produced.
func GenerateTraceParent() string {
	return "00-" + randomHex(16) + "-" + randomHex(8) + "-01"
}

// randomHex returns n random bytes hex-encoded, never all-zero.
func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil || allZero(b) {
		b[n-1] = 0x01
	}
	return hex.EncodeToString(b)
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
