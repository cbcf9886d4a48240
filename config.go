package sitegate

import (
	"log/slog"
	"strings"
	"time"

	"github.com/giantswarm/sitegate/instrumentation"
	"github.com/giantswarm/sitegate/security"
	"github.com/giantswarm/sitegate/token"
)

// minPlainSecretLength is the length below which a plaintext secret draws a warning.
const minPlainSecretLength = 12

// Config holds the site gate configuration
// Structured using composition for better organization and maintainability
type Config struct {
	// Secret is the shared site password, either plaintext or a bcrypt hash.
	// Empty leaves the server running but refusing every authentication.
	Secret string

	// SecretSource names where Secret came from (e.g. an environment variable).
	// Only used in log messages.
	SecretSource string

	// SessionTTL is how long an issued session stays valid.
	// Default: 1 hour
	SessionTTL time.Duration

	// RoutePrefix is where RegisterRoutes mounts the endpoints.
	// Default: "/api"
	RoutePrefix string

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// Security settings (secure by default)
	Security SecurityConfig

	// Session cookie attributes
	Cookie CookieConfig

	// Clock drives rate limit windows and token expiry. Nil means the wall clock.
	Clock security.Clock

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger

	// Instrumentation for metrics and traces (optional, no-op if not provided)
	Instrumentation *instrumentation.Instrumentation
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// AuthLimit and AuthWindow bound credential submissions per client.
	// Default: 5 per 15 minutes
	AuthLimit  int
	AuthWindow time.Duration

	// CheckLimit and CheckWindow bound session checks per client.
	// Default: 100 per minute
	CheckLimit  int
	CheckWindow time.Duration

	// MaxEntries bounds the number of tracked client keys.
	// Default: 10000
	MaxEntries int

	// SweepInterval is how often expired windows are removed.
	// Default: 60 seconds
	SweepInterval time.Duration

	// GlobalAuthRate bounds credential comparisons per second across all
	// clients. Zero disables the global limiter.
	GlobalAuthRate float64

	// GlobalAuthBurst is the burst size of the global limiter.
	// Default: 10 when GlobalAuthRate is set
	GlobalAuthBurst int

	// TrustProxy enables trusting X-Forwarded-For and X-Real-IP headers.
	// Only enable behind a trusted reverse proxy.
	TrustProxy bool

	// TrustedProxyCount is the number of trusted proxies appending to
	// X-Forwarded-For. Zero takes the first hop.
	TrustedProxyCount int
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	// Production marks the session cookie Secure and enables HSTS.
	Production bool

	// EnableAuditLogging enables security audit logging.
	// Logs issued sessions, failures and tamper events (tokens hashed).
	EnableAuditLogging bool

	// DeviceHeader is the request header bound into session tokens.
	// Default: "User-Agent"
	DeviceHeader string
}

// CookieConfig holds session cookie attributes
type CookieConfig struct {
	// Name of the session cookie.
	// Default: "authToken"
	Name string

	// Path of the session cookie.
	// Default: "/"
	Path string

	// Domain of the session cookie. Empty means host-only.
	Domain string
}

// applyDefaults returns a copy of config with zero values replaced by secure
// defaults, logging a warning for every corrected or risky setting.
func applyDefaults(config *Config, logger *slog.Logger) *Config {
	var cfg Config
	if config != nil {
		cfg = *config
	}

	if cfg.SessionTTL <= 0 {
		if cfg.SessionTTL < 0 {
			logger.Warn("CONFIGURATION WARNING: Invalid SessionTTL corrected",
				"provided_value", cfg.SessionTTL,
				"corrected_to", DefaultSessionTTL)
		}
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.RoutePrefix == "" {
		cfg.RoutePrefix = DefaultRoutePrefix
	}
	cfg.RoutePrefix = "/" + strings.Trim(cfg.RoutePrefix, "/")
	if cfg.RoutePrefix == "/" {
		cfg.RoutePrefix = ""
	}

	applyRateLimitDefaults(&cfg.RateLimit, logger)

	if cfg.Security.DeviceHeader == "" {
		cfg.Security.DeviceHeader = token.DeviceHeader
	}
	if cfg.Cookie.Name == "" {
		cfg.Cookie.Name = DefaultCookieName
	}
	if cfg.Cookie.Path == "" {
		cfg.Cookie.Path = "/"
	}

	logSecurityWarnings(&cfg, logger)
	return &cfg
}

func applyRateLimitDefaults(rl *RateLimitConfig, logger *slog.Logger) {
	if rl.AuthLimit <= 0 {
		rl.AuthLimit = DefaultAuthLimit
	}
	if rl.AuthWindow <= 0 {
		rl.AuthWindow = DefaultAuthWindow
	}
	if rl.CheckLimit <= 0 {
		rl.CheckLimit = DefaultCheckLimit
	}
	if rl.CheckWindow <= 0 {
		rl.CheckWindow = DefaultCheckWindow
	}
	if rl.MaxEntries <= 0 {
		rl.MaxEntries = security.DefaultMaxEntries
	}
	if rl.SweepInterval <= 0 {
		rl.SweepInterval = security.DefaultSweepInterval
	}
	if rl.GlobalAuthRate < 0 {
		logger.Warn("CONFIGURATION WARNING: Invalid GlobalAuthRate corrected",
			"provided_value", rl.GlobalAuthRate,
			"corrected_to", 0,
			"reason", "rate cannot be negative")
		rl.GlobalAuthRate = 0
	}
	if rl.GlobalAuthRate > 0 && rl.GlobalAuthBurst <= 0 {
		rl.GlobalAuthBurst = 10
	}
	if rl.TrustedProxyCount < 0 {
		logger.Warn("CONFIGURATION WARNING: Invalid TrustedProxyCount corrected",
			"provided_value", rl.TrustedProxyCount,
			"corrected_to", 0)
		rl.TrustedProxyCount = 0
	}
}

// logSecurityWarnings logs warnings for missing or risky configuration
func logSecurityWarnings(cfg *Config, logger *slog.Logger) {
	if cfg.Secret == "" {
		logger.Error("CONFIGURATION ERROR: No site secret configured",
			"source", cfg.SecretSource,
			"effect", "every authentication and session check fails with 500")
	} else if !security.NewCredential(cfg.Secret).Hashed() && len(cfg.Secret) < minPlainSecretLength {
		logger.Warn("SECURITY WARNING: Site secret is short",
			"length", len(cfg.Secret),
			"recommendation", "Use a longer secret or a bcrypt hash (sitegate hash-password)")
	}
	if cfg.RateLimit.TrustProxy {
		logger.Warn("SECURITY NOTICE: Trusting proxy headers",
			"risk", "IP spoofing if proxy is not properly configured",
			"recommendation", "Only enable behind trusted reverse proxies",
			"trusted_proxy_count", cfg.RateLimit.TrustedProxyCount)
	}
	if !cfg.Security.Production {
		logger.Warn("SECURITY NOTICE: Production mode is off",
			"effect", "session cookie is not marked Secure and HSTS is not sent")
	}
}
