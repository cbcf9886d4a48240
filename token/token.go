package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const (
	// Sentinel is the fixed value signed inside every valid token.
	Sentinel = "authenticated"

	// DeviceHeader is the request header bound into tokens.
	DeviceHeader = "User-Agent"

	// MaxTokenLength bounds the cookie values that are worth hashing.
	// Well-formed tokens are well under 100 bytes.
	MaxTokenLength = 512

	separator = "."
)

// Reason explains why a token was rejected.
type Reason int

const (
	// ReasonNone accompanies a valid token.
	ReasonNone Reason = iota
	// ReasonMalformed covers wrong segment counts, unparseable expiries and oversized tokens.
	ReasonMalformed
	// ReasonExpired means the embedded expiry has passed.
	ReasonExpired
	// ReasonInvalidSignature means the signature does not match, including a wrong sentinel.
	ReasonInvalidSignature
)

// String returns the reason name used in logs and metrics.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMalformed:
		return "malformed"
	case ReasonExpired:
		return "expired"
	case ReasonInvalidSignature:
		return "invalid_signature"
	default:
		return "unknown"
	}
}

// Result is the outcome of Verify.
type Result struct {
	Valid  bool
	Reason Reason
}

// Clock is the time source used for expiry.
type Clock interface {
	Now() time.Time
}

// Codec issues and verifies tokens against a clock.
// The zero value uses the wall clock.
type Codec struct {
	Clock Clock
}

// NewCodec returns a Codec using clock, or the wall clock when clock is nil.
func NewCodec(clock Clock) *Codec {
	return &Codec{Clock: clock}
}

var defaultCodec = &Codec{}

func (c *Codec) now() time.Time {
	if c == nil || c.Clock == nil {
		return time.Now()
	}
	return c.Clock.Now()
}

// DeviceHash returns the hex SHA-256 of a device-identifying header value.
func DeviceHash(headerValue string) string {
	sum := sha256.Sum256([]byte(headerValue))
	return hex.EncodeToString(sum[:])
}

// Issue creates a token with the wall clock. See (*Codec).Issue.
func Issue(secret, deviceHash string, ttl time.Duration) string {
	return defaultCodec.Issue(secret, deviceHash, ttl)
}

// Verify checks a token with the wall clock. See (*Codec).Verify.
func Verify(secret, token, deviceHash string) Result {
	return defaultCodec.Verify(secret, token, deviceHash)
}

// Issue creates a token expiring ttl from now, bound to deviceHash.
func (c *Codec) Issue(secret, deviceHash string, ttl time.Duration) string {
	expiry := strconv.FormatInt(c.now().Add(ttl).UnixMilli(), 10)
	return Sentinel + separator + expiry + separator + sign(secret, Sentinel, expiry, deviceHash)
}

// ExpiresAt returns the expiry embedded in a structurally valid token without
// checking its signature.
func ExpiresAt(token string) (time.Time, bool) {
	parts := strings.Split(token, separator)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Verify checks token against secret and the verifier's own deviceHash.
//
// Checks run in order: segment count, expiry syntax, expiry time, signature.
// The signature comparison first requires equal lengths and then compares in
// constant time. A token whose first segment is not the sentinel fails the
// signature check.
func (c *Codec) Verify(secret, token, deviceHash string) Result {
	if len(token) > MaxTokenLength {
		return Result{Reason: ReasonMalformed}
	}

	parts := strings.Split(token, separator)
	if len(parts) != 3 {
		return Result{Reason: ReasonMalformed}
	}
	value, expiry, signature := parts[0], parts[1], parts[2]

	expiryMs, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return Result{Reason: ReasonMalformed}
	}
	if c.now().UnixMilli() > expiryMs {
		return Result{Reason: ReasonExpired}
	}

	expected := sign(secret, value, expiry, deviceHash)
	if len(signature) != len(expected) {
		return Result{Reason: ReasonInvalidSignature}
	}
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 || value != Sentinel {
		return Result{Reason: ReasonInvalidSignature}
	}

	return Result{Valid: true, Reason: ReasonNone}
}

func sign(secret, value, expiry, deviceHash string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value + separator + expiry + separator + deviceHash))
	return hex.EncodeToString(mac.Sum(nil))
}
