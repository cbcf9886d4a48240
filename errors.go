package sitegate

import (
	"errors"
	"net/http"
	"time"

	"github.com/samber/oops"
)

// Sentinel errors returned (wrapped) by Server. Use errors.Is to classify.
var (
	// ErrConfiguration means the server cannot serve the request as configured,
	// for example because no secret is set.
	ErrConfiguration = errors.New("server misconfigured")

	// ErrRateLimited means a rate limiter rejected the request.
	ErrRateLimited = errors.New("too many attempts")

	// ErrMalformedInput covers undecodable bodies, bad password input and malformed tokens.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInvalidCredential means the submitted password did not match.
	ErrInvalidCredential = errors.New("incorrect password")

	// ErrInvalidSignature means a session token failed signature verification.
	ErrInvalidSignature = errors.New("invalid session signature")

	// ErrExpired means a session token is past its expiry.
	ErrExpired = errors.New("session expired")

	// ErrNotAuthenticated means no session token was presented.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Error codes attached to wrapped errors.
const (
	CodeConfiguration     = "CONFIGURATION"
	CodeRateLimited       = "RATE_LIMITED"
	CodeMalformedInput    = "MALFORMED_INPUT"
	CodeInvalidCredential = "INVALID_CREDENTIAL"
	CodeInvalidSignature  = "INVALID_SIGNATURE"
	CodeExpired           = "SESSION_EXPIRED"
	CodeNotAuthenticated  = "NOT_AUTHENTICATED"
)

// errorDomain is the oops domain of every error raised by this package.
const errorDomain = "sitegate"

// StatusForError maps an error returned by Server to the HTTP status the
// endpoints respond with. Unknown errors map to 500.
func StatusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrMalformedInput),
		errors.Is(err, ErrInvalidCredential),
		errors.Is(err, ErrInvalidSignature),
		errors.Is(err, ErrExpired),
		errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// contextRetryAfter is the oops context key carrying a rate limit's wait.
const contextRetryAfter = "retry_after"

// RetryAfter returns how long a rate limited caller should wait, as recorded
// by the limiter that rejected it. Errors without a recorded wait yield
// fallback.
func RetryAfter(err error, fallback time.Duration) time.Duration {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return fallback
	}
	if d, ok := oopsErr.Context()[contextRetryAfter].(time.Duration); ok && d > 0 {
		return d
	}
	return fallback
}
