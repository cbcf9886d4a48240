package main

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/giantswarm/sitegate"
)

// Default values for serve command flags.
const (
	defaultListen        = ":8080"
	defaultMetricsListen = "127.0.0.1:9100"
	defaultSecretEnv     = "ADMIN_PASSWORD"
	defaultLogFormat     = "json"
	defaultLogLevel      = "info"
)

// serveConfig holds configuration for the serve command. Keys are shared by
// the YAML file and the flags; flags win over the file.
type serveConfig struct {
	Listen            string        `koanf:"listen"`
	MetricsListen     string        `koanf:"metrics-listen"`
	RoutePrefix       string        `koanf:"route-prefix"`
	SecretEnv         string        `koanf:"secret-env"`
	SessionTTL        time.Duration `koanf:"session-ttl"`
	TrustProxy        bool          `koanf:"trust-proxy"`
	TrustedProxyCount int           `koanf:"trusted-proxy-count"`
	Production        bool          `koanf:"production"`
	AuditLog          bool          `koanf:"audit-log"`
	GlobalAuthRate    float64       `koanf:"global-auth-rate"`
	GlobalAuthBurst   int           `koanf:"global-auth-burst"`
	CookieDomain      string        `koanf:"cookie-domain"`
	LogClientIPs      bool          `koanf:"log-client-ips"`
	LogFormat         string        `koanf:"log-format"`
	LogLevel          string        `koanf:"log-level"`
}

// registerServeFlags declares every serve setting as a flag. Flag defaults
// are the configuration defaults.
func registerServeFlags(fs *pflag.FlagSet) {
	fs.String("listen", defaultListen, "public HTTP listen address")
	fs.String("metrics-listen", defaultMetricsListen, "metrics/health HTTP address (empty = disabled)")
	fs.String("route-prefix", sitegate.DefaultRoutePrefix, "path prefix of the session endpoints")
	fs.String("secret-env", defaultSecretEnv, "environment variable holding the site password or its bcrypt hash")
	fs.Duration("session-ttl", sitegate.DefaultSessionTTL, "session lifetime")
	fs.Bool("trust-proxy", true, "derive client addresses from X-Forwarded-For / X-Real-IP")
	fs.Int("trusted-proxy-count", 0, "trusted proxies appending to X-Forwarded-For (0 = first hop)")
	fs.Bool("production", false, "mark cookies Secure and send HSTS")
	fs.Bool("audit-log", true, "emit security_audit log records")
	fs.Float64("global-auth-rate", 0, "authentication attempts per second across all clients (0 = unlimited)")
	fs.Int("global-auth-burst", 0, "burst of the global authentication limiter")
	fs.String("cookie-domain", "", "session cookie domain (empty = host-only)")
	fs.Bool("log-client-ips", false, "attach client keys to trace spans")
	fs.String("log-format", defaultLogFormat, "log format (json or text)")
	fs.String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")
}

// loadConfig layers the optional YAML file at path under the flags in fs.
func loadConfig(fs *pflag.FlagSet, path string) (*serveConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
	}

	// Unchanged flags only fill keys the file did not set.
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "load flags").Wrap(err)
	}

	var cfg serveConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal config").Wrap(err)
	}

	if cfg.Listen == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("listen address cannot be empty")
	}
	if cfg.SecretEnv == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("secret-env cannot be empty")
	}
	return &cfg, nil
}

// siteConfig maps the CLI configuration onto the library configuration.
func (c *serveConfig) siteConfig(secret string) *sitegate.Config {
	return &sitegate.Config{
		Secret:       secret,
		SecretSource: c.SecretEnv,
		SessionTTL:   c.SessionTTL,
		RoutePrefix:  c.RoutePrefix,
		RateLimit: sitegate.RateLimitConfig{
			GlobalAuthRate:    c.GlobalAuthRate,
			GlobalAuthBurst:   c.GlobalAuthBurst,
			TrustProxy:        c.TrustProxy,
			TrustedProxyCount: c.TrustedProxyCount,
		},
		Security: sitegate.SecurityConfig{
			Production:         c.Production,
			EnableAuditLogging: c.AuditLog,
		},
		Cookie: sitegate.CookieConfig{
			Domain: c.CookieDomain,
		},
	}
}
