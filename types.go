package sitegate

import "time"

const (
	// DefaultSessionTTL is how long an issued session cookie stays valid.
	DefaultSessionTTL = 1 * time.Hour

	// DefaultRoutePrefix is where RegisterRoutes mounts the endpoints.
	DefaultRoutePrefix = "/api"

	// DefaultCookieName carries the session token.
	DefaultCookieName = "authToken"

	// DefaultAuthLimit and DefaultAuthWindow bound credential submissions per client.
	DefaultAuthLimit  = 5
	DefaultAuthWindow = 15 * time.Minute

	// DefaultCheckLimit and DefaultCheckWindow bound session checks per client.
	DefaultCheckLimit  = 100
	DefaultCheckWindow = 1 * time.Minute

	// MaxRequestBodySize caps the authentication request body.
	MaxRequestBodySize = 4 << 10
)

// Endpoint paths relative to the route prefix.
const (
	PathAuthenticate = "/authenticate"
	PathCheckAuth    = "/check-auth"
)

// Rate limit key namespaces. Both share one limiter table.
const (
	namespaceAuth  = "auth"
	namespaceCheck = "check"
)

// Limiter names used in logs, audit records and metrics.
const (
	limiterAuth   = "auth"
	limiterCheck  = "check"
	limiterGlobal = "global"
)

// Caller-visible messages. These are the only failure texts a client ever sees.
const (
	MessageMethodNotAllowed = "Method Not Allowed"
	MessageInternalError    = "Internal Server Error"
	MessageTooManyAttempts  = "Too many attempts. Please try again later."
	MessageIncorrect        = "Incorrect password"
)

// AuthenticateRequest is the JSON body of POST /authenticate.
type AuthenticateRequest struct {
	Password string `json:"password"`
}

// MessageResponse is the failure body of the authentication endpoint.
type MessageResponse struct {
	Message string `json:"message"`
}

// SuccessResponse is the body of a successful authentication.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// CheckAuthResponse is the body of every verification response.
type CheckAuthResponse struct {
	Authenticated bool `json:"authenticated"`
}

// Attempt is one credential submission as seen by Server.Authenticate.
type Attempt struct {
	// ClientIP is the derived client address, before namespacing.
	ClientIP string

	// Device is the raw value of the device-identifying header.
	Device string

	// Password is the submitted credential. Empty when the body did not decode.
	Password string

	// RequestID correlates logs and audit records.
	RequestID string
}

// SessionCheck is one verification request as seen by Server.CheckSession.
type SessionCheck struct {
	ClientIP  string
	Device    string
	Token     string
	RequestID string
}

// Session is an issued session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	TTL       time.Duration
}
