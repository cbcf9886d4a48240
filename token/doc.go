// Package token issues and verifies sitegate session tokens.
//
// A token has three dot-separated segments:
//
//	authenticated.<expiry>.<signature>
//
// expiry is the absolute expiry time in Unix milliseconds. signature is the hex
// HMAC-SHA256, keyed by the shared secret, of "authenticated.<expiry>.<deviceHash>",
// where deviceHash is the hex SHA-256 of the client's device-identifying header
// (User-Agent). The device hash is never carried in the token: the verifier
// recomputes it from its own request, so a token replayed from another client
// context fails signature verification.
//
// There is no server-side session state. A token is valid until its embedded
// expiry passes; the cookie's own Max-Age is not trusted.
package token
