package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span attribute keys
//
// SECURITY WARNING: Never attach submitted passwords, the shared secret, session
// tokens or raw User-Agent values to spans. Only record outcomes and reasons.
const (
	// Session attributes
	AttrAuthResult    = "sitegate.auth.result"
	AttrSessionResult = "sitegate.session.result"
	AttrSessionReason = "sitegate.session.reason"

	// Security attributes
	AttrRateLimiter   = "security.rate_limiter"
	AttrClientKey     = "security.client_key"
	AttrRequestID     = "security.request_id"
	AttrSecurityEvent = "security.event"

	// HTTP attributes (in addition to standard semantic conventions)
	AttrHTTPEndpoint   = "http.endpoint"
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe)
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddHTTPAttributes adds HTTP request attributes to a span (nil-safe)
func AddHTTPAttributes(span trace.Span, method, endpoint string, statusCode int) {
	if span == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPEndpoint, endpoint),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int(AttrHTTPStatusCode, statusCode))
	}
	span.SetAttributes(attrs...)
}

// AddSecurityAttributes adds the rate limit key and request ID to a span (nil-safe).
// The client key is only attached when logClientIPs is set.
func AddSecurityAttributes(span trace.Span, clientKey, requestID string, logClientIPs bool) {
	if span == nil {
		return
	}
	if logClientIPs && clientKey != "" {
		span.SetAttributes(attribute.String(AttrClientKey, clientKey))
	}
	if requestID != "" {
		span.SetAttributes(attribute.String(AttrRequestID, requestID))
	}
}
