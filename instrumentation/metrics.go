package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Result values for the auth.attempts and session.checks counters
const (
	ResultSuccess     = "success"
	ResultFailure     = "failure"
	ResultRateLimited = "rate_limited"
	ResultError       = "error"
)

// Metrics holds all metric instruments for sitegate
type Metrics struct {
	// HTTP Layer Metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Session Metrics
	AuthAttempts  metric.Int64Counter
	SessionChecks metric.Int64Counter

	// Security Metrics
	RateLimitExceeded metric.Int64Counter
	TamperDetected    metric.Int64Counter
	RateLimitEntries  metric.Int64ObservableGauge
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}
	httpMeter := inst.Meter("http")
	serverMeter := inst.Meter("server")
	securityMeter := inst.Meter("security")

	var err error
	m.HTTPRequestsTotal, err = httpMeter.Int64Counter(
		"sitegate.http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http.requests.total counter: %w", err)
	}

	m.HTTPRequestDuration, err = httpMeter.Float64Histogram(
		"sitegate.http.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http.request.duration histogram: %w", err)
	}

	m.AuthAttempts, err = serverMeter.Int64Counter(
		"sitegate.auth.attempts",
		metric.WithDescription("Credential submissions by result"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth.attempts counter: %w", err)
	}

	m.SessionChecks, err = serverMeter.Int64Counter(
		"sitegate.session.checks",
		metric.WithDescription("Session verifications by result"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session.checks counter: %w", err)
	}

	m.RateLimitExceeded, err = securityMeter.Int64Counter(
		"sitegate.rate_limit.exceeded",
		metric.WithDescription("Requests rejected by a rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.exceeded counter: %w", err)
	}

	m.TamperDetected, err = securityMeter.Int64Counter(
		"sitegate.tamper.detected",
		metric.WithDescription("Session tokens presented with a signature that does not verify"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tamper.detected counter: %w", err)
	}

	m.RateLimitEntries, err = securityMeter.Int64ObservableGauge(
		"sitegate.rate_limit.entries",
		metric.WithDescription("Client keys currently tracked by the rate limiter"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.entries gauge: %w", err)
	}

	return m, nil
}

// Helper methods for common metric recording patterns

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, endpoint string, statusCode int, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("endpoint", endpoint),
		attribute.Int("status", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPRequestDuration.Record(ctx, durationMs, metric.WithAttributes(attribute.String("endpoint", endpoint)))
}

// RecordAuthAttempt records a credential submission outcome
func (m *Metrics) RecordAuthAttempt(ctx context.Context, result string) {
	m.AuthAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
	))
}

// RecordSessionCheck records a session verification outcome
func (m *Metrics) RecordSessionCheck(ctx context.Context, result string) {
	m.SessionChecks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
	))
}

// RecordRateLimitExceeded records a rate limit violation
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context, limiter string) {
	m.RateLimitExceeded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("limiter", limiter),
	))
}

// RecordTamperDetected records a forged or replayed session token
func (m *Metrics) RecordTamperDetected(ctx context.Context) {
	m.TamperDetected.Add(ctx, 1)
}
