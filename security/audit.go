package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Auditor handles security event logging with PII protection.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
	clock   Clock
}

// NewAuditor creates a new security auditor
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
		clock:   SystemClock,
	}
}

// Event represents a security audit event
type Event struct {
	Type      string
	ClientKey string
	RequestID string
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs a security event. A nil or disabled Auditor drops it.
func (a *Auditor) LogEvent(event Event) {
	if a == nil || !a.enabled {
		return
	}

	event.Timestamp = a.clock.Now()

	a.logger.Info("security_audit",
		"event_type", event.Type,
		"client_key", SanitizeKey(event.ClientKey),
		"request_id", event.RequestID,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)
}

// LogSessionIssued logs when a session cookie is issued
func (a *Auditor) LogSessionIssued(clientKey, requestID string, ttl time.Duration) {
	a.LogEvent(Event{
		Type:      EventSessionIssued,
		ClientKey: clientKey,
		RequestID: requestID,
		Details: map[string]any{
			"ttl_seconds": int64(ttl / time.Second),
		},
	})
}

// LogAuthFailure logs an authentication failure
func (a *Auditor) LogAuthFailure(clientKey, requestID, reason string) {
	a.LogEvent(Event{
		Type:      EventAuthFailure,
		ClientKey: clientKey,
		RequestID: requestID,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogRateLimitExceeded logs a rate limit violation
func (a *Auditor) LogRateLimitExceeded(clientKey, requestID, limiter string) {
	a.LogEvent(Event{
		Type:      EventRateLimitExceeded,
		ClientKey: clientKey,
		RequestID: requestID,
		Details: map[string]any{
			"limiter": limiter,
		},
	})
}

// LogTamperDetected logs a session token whose signature does not verify.
// Only a short hash of the token is recorded.
func (a *Auditor) LogTamperDetected(clientKey, requestID, tokenValue string) {
	a.LogEvent(Event{
		Type:      EventTamperDetected,
		ClientKey: clientKey,
		RequestID: requestID,
		Details: map[string]any{
			"token_hash": hashForLogging(tokenValue),
		},
	})
}

// LogSessionRejected logs an expired or malformed session token
func (a *Auditor) LogSessionRejected(clientKey, requestID, reason string) {
	a.LogEvent(Event{
		Type:      EventSessionRejected,
		ClientKey: clientKey,
		RequestID: requestID,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogConfigurationError logs a request refused because the server is misconfigured
func (a *Auditor) LogConfigurationError(requestID, problem string) {
	a.LogEvent(Event{
		Type:      EventConfigurationError,
		RequestID: requestID,
		Details: map[string]any{
			"problem": problem,
		},
	})
}

// hashForLogging creates a SHA256 hash of sensitive data for logging
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
