// Package instrumentation provides OpenTelemetry instrumentation for sitegate.
//
// Metrics and traces are disabled by default and cost nothing until enabled:
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		Enabled:         true,
//		ServiceVersion:  version,
//		MetricsExporter: instrumentation.ExporterPrometheus,
//	})
//	if err != nil {
//		return err
//	}
//	defer inst.Shutdown(context.Background())
//
// With the Prometheus exporter the instruments are collected into a private
// prometheus.Registry (plus Go and process collectors) served by
// MetricsHandler, or by a Server listening on a separate address together
// with /healthz.
//
// # Available Metrics
//
// HTTP Layer:
//   - sitegate.http.requests.total{method, endpoint, status}
//   - sitegate.http.request.duration{endpoint} in milliseconds
//
// Sessions:
//   - sitegate.auth.attempts{result}
//   - sitegate.session.checks{result}
//
// Security:
//   - sitegate.rate_limit.exceeded{limiter}
//   - sitegate.tamper.detected
//   - sitegate.rate_limit.entries (observable, see RegisterRateLimiterCallback)
//
// # Privacy
//
// Passwords, the shared secret, session tokens and user agents are never
// recorded. Client keys are attached to spans only when Config.LogClientIPs
// is set.
package instrumentation
