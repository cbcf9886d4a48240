package security

import (
	"net/http"
)

// HSTSValue is sent in production, where the site is only reachable over HTTPS.
const HSTSValue = "max-age=31536000; includeSubDomains"

// sessionResponseHeaders apply to every answer of the session endpoints. The
// bodies are small JSON documents that no browser should render, frame,
// sniff or cache.
var sessionResponseHeaders = [][2]string{
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"Cache-Control", "no-store, no-cache, must-revalidate, private"},
	{"Pragma", "no-cache"},
}

// SetSecurityHeaders marks a session endpoint response as uncacheable,
// unframeable JSON. With production set it also pins the site to HTTPS.
func SetSecurityHeaders(w http.ResponseWriter, production bool) {
	h := w.Header()
	for _, kv := range sessionResponseHeaders {
		h.Set(kv[0], kv[1])
	}
	if production {
		h.Set("Strict-Transport-Security", HSTSValue)
	}
}
