// Package security provides the abuse-prevention building blocks of sitegate:
// rate limiting, client key derivation, credential comparison, audit logging,
// security headers, and request IDs.
//
// # Rate Limiting
//
// RateLimiter keeps one fixed-window counter per client key. A key is admitted
// while its count is below the limit; once the window's reset time has passed
// the next touch starts a fresh window.
//
// ## Memory Management
//
// The table is bounded. When it is full, inserting a new key evicts exactly one
// entry, the least recently used, so repeat visitors survive an address-rotating
// flood while one-shot keys are evicted first. The table is never cleared
// wholesale. An optional periodic sweep removes windows that have elapsed.
//
// Default configuration:
//   - MaxEntries: 10,000 keys
//   - SweepInterval: 60 seconds
//
// ## Example Usage
//
//	limiter := security.NewRateLimiter(logger)
//	limiter.Start()
//	defer limiter.Stop()
//
//	key := security.NamespacedKey("auth", security.GetClientIP(r, trustProxy, 0))
//	if !limiter.Admit(key, 5, 15*time.Minute) {
//	    return http.StatusTooManyRequests
//	}
//
// Start and Stop are idempotent, so a reload that calls Start again never
// produces a second sweeper.
//
// ## Monitoring and Alerting
//
// GetStats reports CurrentEntries, MaxEntries, TotalEvictions, TotalSweeps and
// MemoryPressure (0-100). Rapidly increasing evictions suggest a distributed
// attack.
//
// ## Limitations
//
// Counters are process-local. Several instances behind a load balancer each
// keep an independent table.
//
// # Client Keys
//
// GetClientIP trusts X-Forwarded-For only when configured to, which is safe
// only behind a reverse proxy that overwrites the header. Keys are stripped of
// control characters and capped at MaxKeyLength before use.
//
// # Credentials
//
// Credential compares a submitted password against the shared secret in
// constant time, either as SHA-256 digests or through bcrypt when the secret is
// configured as a bcrypt hash.
package security
