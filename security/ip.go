package security

import (
	"net"
	"net/http"
	"strings"

	"github.com/giantswarm/sitegate/internal/util"
)

// MaxKeyLength caps rate limit keys so attacker-chosen identifiers cannot grow
// the table's memory footprint.
const MaxKeyLength = 64

// UnknownClient is the key used when no client address can be determined.
const UnknownClient = "unknown"

// GetClientIP extracts the real client IP address from the request
// Supports X-Forwarded-For and X-Real-IP headers when behind a proxy
//
// SECURITY CONSIDERATIONS:
// - Only enable trustProxy when behind a reverse proxy that overwrites X-Forwarded-For
// - X-Forwarded-For format: "client, proxy1, proxy2, ..."
// - trustedProxyCount == 0 takes the first hop (leftmost entry)
// - trustedProxyCount > 0 counts that many trusted proxies from the right
func GetClientIP(r *http.Request, trustProxy bool, trustedProxyCount int) string {
	if trustProxy {
		if ip := extractIPFromXFF(r.Header.Get("X-Forwarded-For"), trustedProxyCount); ip != "" {
			return ip
		}
		if ip := extractIPFromXRealIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	if ip := extractIPFromRemoteAddr(r.RemoteAddr); ip != "" {
		return ip
	}
	return UnknownClient
}

// NamespacedKey prefixes a sanitized client address with namespace, so the
// authentication and verification budgets never share a counter.
func NamespacedKey(namespace, clientIP string) string {
	ip := SanitizeKey(clientIP)
	if namespace == "" {
		return ip
	}
	return SanitizeKey(namespace + ":" + ip)
}

// SanitizeKey strips control characters and truncates to MaxKeyLength.
// An empty result becomes UnknownClient.
func SanitizeKey(key string) string {
	key = util.SafeTruncate(util.StripControl(key), MaxKeyLength)
	if key == "" {
		return UnknownClient
	}
	return key
}

// extractIPFromXFF parses the X-Forwarded-For header and extracts the client IP.
//
// Example with trustedProxyCount=2:
//
//	Client (1.2.3.4) -> UntrustedProxy -> TrustedProxy2 -> TrustedProxy1 (us)
//	X-Forwarded-For: "1.2.3.4, untrusted-ip, proxy2-ip"
//	We extract: ips[len(ips) - trustedProxyCount - 1] = ips[0] = "1.2.3.4"
func extractIPFromXFF(xff string, trustedProxyCount int) string {
	if xff == "" {
		return ""
	}

	ips := strings.Split(xff, ",")
	clientIndex := calculateClientIPIndex(len(ips), trustedProxyCount)
	clientIP := strings.TrimSpace(ips[clientIndex])

	if net.ParseIP(clientIP) != nil {
		return clientIP
	}
	return ""
}

// calculateClientIPIndex determines the index of the client IP in the X-Forwarded-For list.
// trustedProxyCount=0 selects the first hop. Otherwise the client IP is at
// len(ips) - proxyCount - 1, clamped to 0 when the list is too short.
func calculateClientIPIndex(numIPs, trustedProxyCount int) int {
	if trustedProxyCount <= 0 {
		return 0
	}

	clientIndex := numIPs - trustedProxyCount - 1
	if clientIndex < 0 {
		return 0
	}
	return clientIndex
}

// extractIPFromXRealIP parses the X-Real-IP header (set by some proxies).
func extractIPFromXRealIP(xri string) string {
	xri = strings.TrimSpace(xri)
	if xri == "" {
		return ""
	}
	if net.ParseIP(xri) != nil {
		return xri
	}
	return ""
}

// extractIPFromRemoteAddr extracts the IP from RemoteAddr for direct connections.
func extractIPFromRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
