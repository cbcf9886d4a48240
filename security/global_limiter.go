package security

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// GlobalLimiter is a process-wide token bucket bounding the total rate of
// credential comparisons regardless of client key. It complements the per-key
// RateLimiter against guessing spread across many rotating addresses.
//
// A nil *GlobalLimiter allows everything.
type GlobalLimiter struct {
	limiter *rate.Limiter
	clock   Clock
	logger  *slog.Logger
}

// NewGlobalLimiter creates a limiter admitting perSecond attempts on average with
// the given burst. A non-positive perSecond disables the limiter and returns nil.
func NewGlobalLimiter(perSecond float64, burst int, clock Clock, logger *slog.Logger) *GlobalLimiter {
	if perSecond <= 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if burst <= 0 {
		burst = 1
	}
	return &GlobalLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		clock:   clockOrDefault(clock),
		logger:  logger,
	}
}

// Allow reports whether one more attempt may proceed now.
func (g *GlobalLimiter) Allow() bool {
	if g == nil {
		return true
	}
	if g.limiter.AllowN(g.clock.Now(), 1) {
		return true
	}
	g.logger.Debug("Global attempt limit reached",
		"limit", float64(g.limiter.Limit()),
		"burst", g.limiter.Burst())
	return false
}

// RetryAfter returns how long until one token is available again. It is zero
// for a nil limiter or when a token is available now.
func (g *GlobalLimiter) RetryAfter() time.Duration {
	if g == nil {
		return 0
	}
	missing := 1 - g.limiter.TokensAt(g.clock.Now())
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / float64(g.limiter.Limit()) * float64(time.Second))
}
