package security

// Event type constants for security audit logging.
// These constants ensure consistency across the codebase and prevent typos
// when logging security-relevant events.
const (
	// Session lifecycle events

	// EventSessionIssued is logged when a correct credential earns a session cookie
	EventSessionIssued = "session_issued"

	// EventSessionRejected is logged when a presented session is expired or malformed
	EventSessionRejected = "session_rejected"

	// Security violation events

	// EventAuthFailure is logged when a submitted credential is rejected
	EventAuthFailure = "auth_failure"

	// EventRateLimitExceeded is logged when a per-key or global limit is exceeded
	EventRateLimitExceeded = "rate_limit_exceeded"

	// EventTamperDetected is logged when a well-formed, unexpired session token
	// carries a signature that does not match (forged or replayed from another device)
	EventTamperDetected = "tamper_detected"

	// Operational events

	// EventConfigurationError is logged on every request that cannot be served
	// because the shared secret is not configured
	EventConfigurationError = "configuration_error"
)
