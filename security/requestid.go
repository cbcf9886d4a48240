package security

import (
	"context"
	"net/http"
	"regexp"

	"github.com/oklog/ulid/v2"
)

type requestIDContextKey struct{}

// RequestIDHeader carries the ID that ties a session request to its audit
// records and log lines.
const RequestIDHeader = "X-Request-ID"

// requestIDPattern accepts IDs from a fronting proxy: 1-128 letters, digits,
// hyphens or underscores. Anything else could smuggle text into log records.
var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// GenerateRequestID returns a new ULID string (26 characters, Crockford base32).
// ULIDs sort by creation time, which keeps audit records in request order.
func GenerateRequestID() string {
	return ulid.Make().String()
}

// WithRequestID stores requestID in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// GetRequestID returns the ID stored by RequestIDMiddleware, or "".
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDContextKey{}).(string); ok {
		return requestID
	}
	return ""
}

func isValidRequestID(requestID string) bool {
	return requestIDPattern.MatchString(requestID)
}

// RequestIDMiddleware wraps the session endpoints. An acceptable ID set by
// the proxy in front of the site is kept so its access log and the
// security_audit records line up; otherwise a fresh ULID is minted. The ID is
// echoed back and stored in the request context for Server.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)

		if !isValidRequestID(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}
