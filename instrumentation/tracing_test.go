package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder, tp
}

func TestRecordError(t *testing.T) {
	recorder, tp := newRecordingTracer(t)
	_, span := tp.Tracer("test").Start(context.Background(), "authenticate")

	RecordError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", ended[0].Status().Code)
	}
	if len(ended[0].Events()) == 0 {
		t.Error("expected an exception event")
	}
}

func TestSetSpanSuccessAndError(t *testing.T) {
	recorder, tp := newRecordingTracer(t)
	tracer := tp.Tracer("test")

	_, ok := tracer.Start(context.Background(), "ok")
	SetSpanSuccess(ok)
	ok.End()

	_, bad := tracer.Start(context.Background(), "bad")
	SetSpanError(bad, "rate limited")
	bad.End()

	ended := recorder.Ended()
	if ended[0].Status().Code != codes.Ok {
		t.Errorf("first span status = %v, want Ok", ended[0].Status().Code)
	}
	if ended[1].Status().Code != codes.Error || ended[1].Status().Description != "rate limited" {
		t.Errorf("second span status = %+v", ended[1].Status())
	}
}

func TestAddHTTPAttributes(t *testing.T) {
	recorder, tp := newRecordingTracer(t)
	_, span := tp.Tracer("test").Start(context.Background(), "http")

	AddHTTPAttributes(span, "GET", "/api/check-auth", 401)
	span.End()

	attrs := attributeMap(recorder.Ended()[0].Attributes())
	if attrs[AttrHTTPMethod] != attribute.StringValue("GET") {
		t.Errorf("%s = %v", AttrHTTPMethod, attrs[AttrHTTPMethod])
	}
	if attrs[AttrHTTPEndpoint] != attribute.StringValue("/api/check-auth") {
		t.Errorf("%s = %v", AttrHTTPEndpoint, attrs[AttrHTTPEndpoint])
	}
	if attrs[AttrHTTPStatusCode] != attribute.IntValue(401) {
		t.Errorf("%s = %v", AttrHTTPStatusCode, attrs[AttrHTTPStatusCode])
	}
}

func TestAddSecurityAttributes(t *testing.T) {
	tests := []struct {
		name         string
		logClientIPs bool
		wantKey      bool
	}{
		{"client keys enabled", true, true},
		{"client keys disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder, tp := newRecordingTracer(t)
			_, span := tp.Tracer("test").Start(context.Background(), "security")

			AddSecurityAttributes(span, "auth:192.0.2.1", "req-1", tt.logClientIPs)
			span.End()

			attrs := attributeMap(recorder.Ended()[0].Attributes())
			_, hasKey := attrs[AttrClientKey]
			if hasKey != tt.wantKey {
				t.Errorf("client key present = %v, want %v", hasKey, tt.wantKey)
			}
			if attrs[AttrRequestID] != attribute.StringValue("req-1") {
				t.Errorf("%s = %v", AttrRequestID, attrs[AttrRequestID])
			}
		})
	}
}

func TestSpanHelpers_NilSafe(t *testing.T) {
	RecordError(nil, errors.New("x"))
	SetSpanSuccess(nil)
	SetSpanError(nil, "x")
	SetSpanAttributes(nil, attribute.String("k", "v"))
	AddHTTPAttributes(nil, "GET", "/", 200)
	AddSecurityAttributes(nil, "k", "r", true)
}

func attributeMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}
