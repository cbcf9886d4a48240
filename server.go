package sitegate

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/sitegate/instrumentation"
	"github.com/giantswarm/sitegate/security"
	"github.com/giantswarm/sitegate/token"
)

// Server implements session authentication and verification for the site.
// It owns the rate limiter table and the signing credential.
type Server struct {
	Config          *Config
	Logger          *slog.Logger
	RateLimiter     *security.RateLimiter
	GlobalLimiter   *security.GlobalLimiter // nil when disabled
	Auditor         *security.Auditor
	Instrumentation *instrumentation.Instrumentation

	credential security.Credential
	codec      *token.Codec
	tracer     trace.Tracer
}

// NewServer creates a Server from config. A missing secret is not an error:
// it is logged and every request fails closed.
//
// The rate limiter sweep is not running until Start is called.
func NewServer(config *Config) (*Server, error) {
	logger := slog.Default()
	if config != nil && config.Logger != nil {
		logger = config.Logger
	}

	cfg := applyDefaults(config, logger)

	inst := cfg.Instrumentation
	if inst == nil {
		var err error
		inst, err = instrumentation.New(instrumentation.Config{})
		if err != nil {
			return nil, oops.In(errorDomain).Code(CodeConfiguration).Wrap(err)
		}
		cfg.Instrumentation = inst
	}

	limiter := security.NewRateLimiterWithConfig(security.RateLimiterConfig{
		MaxEntries:    cfg.RateLimit.MaxEntries,
		SweepInterval: cfg.RateLimit.SweepInterval,
		Clock:         cfg.Clock,
		Logger:        logger,
	})

	if err := inst.RegisterRateLimiterCallback(func() int64 {
		return int64(limiter.Len())
	}); err != nil {
		return nil, oops.In(errorDomain).Code(CodeConfiguration).With("operation", "register rate limiter gauge").Wrap(err)
	}

	return &Server{
		Config:          cfg,
		Logger:          logger,
		RateLimiter:     limiter,
		GlobalLimiter:   security.NewGlobalLimiter(cfg.RateLimit.GlobalAuthRate, cfg.RateLimit.GlobalAuthBurst, cfg.Clock, logger),
		Auditor:         security.NewAuditor(logger, cfg.Security.EnableAuditLogging),
		Instrumentation: inst,
		credential:      security.NewCredential(cfg.Secret),
		codec:           token.NewCodec(cfg.Clock),
		tracer:          inst.Tracer("server"),
	}, nil
}

// Start launches the rate limiter sweep.
func (s *Server) Start() {
	s.RateLimiter.Start()
}

// Stop terminates the rate limiter sweep.
func (s *Server) Stop() {
	s.RateLimiter.Stop()
}

// Configured reports whether a secret is set.
func (s *Server) Configured() bool {
	return s.credential.Configured()
}

// Authenticate checks one credential submission and issues a session on success.
//
// Checks run in order: secret configured, per-client limiter, global limiter,
// password input, credential comparison. A rate limited attempt never reaches
// the comparison. Attempts the per-client limiter rejects do not spend global
// tokens.
func (s *Server) Authenticate(ctx context.Context, attempt Attempt) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "sitegate.authenticate")
	defer span.End()

	metrics := s.Instrumentation.Metrics()
	key := security.NamespacedKey(namespaceAuth, attempt.ClientIP)
	instrumentation.AddSecurityAttributes(span, key, attempt.RequestID, s.Instrumentation.ShouldLogClientIPs())

	if !s.credential.Configured() {
		s.Logger.Error("Authentication refused: no site secret configured",
			"source", s.Config.SecretSource,
			"request_id", attempt.RequestID)
		s.Auditor.LogConfigurationError(attempt.RequestID, "secret not configured")
		metrics.RecordAuthAttempt(ctx, instrumentation.ResultError)
		err := oops.In(errorDomain).Code(CodeConfiguration).
			With("request_id", attempt.RequestID).
			Wrap(ErrConfiguration)
		instrumentation.RecordError(span, err)
		return nil, err
	}

	if !s.RateLimiter.Admit(key, s.Config.RateLimit.AuthLimit, s.Config.RateLimit.AuthWindow) {
		return nil, s.rateLimited(ctx, span, key, attempt.RequestID, limiterAuth, s.Config.RateLimit.AuthWindow)
	}
	if !s.GlobalLimiter.Allow() {
		return nil, s.rateLimited(ctx, span, key, attempt.RequestID, limiterGlobal, s.GlobalLimiter.RetryAfter())
	}

	if !security.ValidPasswordInput(attempt.Password) {
		return nil, s.authFailed(ctx, span, key, attempt.RequestID, "invalid_input", CodeMalformedInput, ErrMalformedInput)
	}
	if !s.credential.Matches(attempt.Password) {
		return nil, s.authFailed(ctx, span, key, attempt.RequestID, "incorrect_password", CodeInvalidCredential, ErrInvalidCredential)
	}

	ttl := s.Config.SessionTTL
	tok := s.codec.Issue(s.credential.SigningKey(), token.DeviceHash(attempt.Device), ttl)
	expiresAt, _ := token.ExpiresAt(tok)

	s.Logger.Info("Session issued",
		"client_key", key,
		"request_id", attempt.RequestID,
		"expires_at", expiresAt)
	s.Auditor.LogSessionIssued(key, attempt.RequestID, ttl)
	metrics.RecordAuthAttempt(ctx, instrumentation.ResultSuccess)
	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrAuthResult, instrumentation.ResultSuccess))
	instrumentation.SetSpanSuccess(span)

	return &Session{Token: tok, ExpiresAt: expiresAt, TTL: ttl}, nil
}

// CheckSession verifies the session token presented by a request.
//
// Checks run in order: per-client limiter, token present, secret configured,
// token verification against the current device. A nil error means the
// session is valid.
func (s *Server) CheckSession(ctx context.Context, check SessionCheck) error {
	ctx, span := s.tracer.Start(ctx, "sitegate.check_session")
	defer span.End()

	metrics := s.Instrumentation.Metrics()
	key := security.NamespacedKey(namespaceCheck, check.ClientIP)
	instrumentation.AddSecurityAttributes(span, key, check.RequestID, s.Instrumentation.ShouldLogClientIPs())

	if !s.RateLimiter.Admit(key, s.Config.RateLimit.CheckLimit, s.Config.RateLimit.CheckWindow) {
		return s.rateLimited(ctx, span, key, check.RequestID, limiterCheck, s.Config.RateLimit.CheckWindow)
	}

	if check.Token == "" {
		metrics.RecordSessionCheck(ctx, instrumentation.ResultFailure)
		s.setSessionResult(span, instrumentation.ResultFailure, "missing")
		return oops.In(errorDomain).Code(CodeNotAuthenticated).
			With("request_id", check.RequestID).
			Wrap(ErrNotAuthenticated)
	}

	if !s.credential.Configured() {
		s.Logger.Error("Session check refused: no site secret configured",
			"source", s.Config.SecretSource,
			"request_id", check.RequestID)
		s.Auditor.LogConfigurationError(check.RequestID, "secret not configured")
		metrics.RecordSessionCheck(ctx, instrumentation.ResultError)
		err := oops.In(errorDomain).Code(CodeConfiguration).
			With("request_id", check.RequestID).
			Wrap(ErrConfiguration)
		instrumentation.RecordError(span, err)
		return err
	}

	result := s.codec.Verify(s.credential.SigningKey(), check.Token, token.DeviceHash(check.Device))
	if result.Valid {
		metrics.RecordSessionCheck(ctx, instrumentation.ResultSuccess)
		s.setSessionResult(span, instrumentation.ResultSuccess, result.Reason.String())
		instrumentation.SetSpanSuccess(span)
		return nil
	}

	metrics.RecordSessionCheck(ctx, instrumentation.ResultFailure)
	s.setSessionResult(span, instrumentation.ResultFailure, result.Reason.String())

	switch result.Reason {
	case token.ReasonInvalidSignature:
		s.Logger.Warn("Session token signature mismatch",
			"client_key", key,
			"request_id", check.RequestID)
		s.Auditor.LogTamperDetected(key, check.RequestID, check.Token)
		metrics.RecordTamperDetected(ctx)
		instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrSecurityEvent, security.EventTamperDetected))
		return oops.In(errorDomain).Code(CodeInvalidSignature).
			With("request_id", check.RequestID).
			Wrap(ErrInvalidSignature)
	case token.ReasonExpired:
		s.Logger.Debug("Session expired", "client_key", key, "request_id", check.RequestID)
		s.Auditor.LogSessionRejected(key, check.RequestID, result.Reason.String())
		return oops.In(errorDomain).Code(CodeExpired).
			With("request_id", check.RequestID).
			Wrap(ErrExpired)
	default:
		s.Logger.Debug("Malformed session token", "client_key", key, "request_id", check.RequestID)
		s.Auditor.LogSessionRejected(key, check.RequestID, result.Reason.String())
		return oops.In(errorDomain).Code(CodeMalformedInput).
			With("request_id", check.RequestID, "reason", result.Reason.String()).
			Wrap(ErrMalformedInput)
	}
}

// rateLimited records a limiter rejection and returns the wrapped error.
// retryAfter travels in the error context for RetryAfter.
func (s *Server) rateLimited(ctx context.Context, span trace.Span, key, requestID, limiter string, retryAfter time.Duration) error {
	s.Logger.Warn("Rate limit exceeded",
		"client_key", key,
		"limiter", limiter,
		"request_id", requestID)
	s.Auditor.LogRateLimitExceeded(key, requestID, limiter)

	metrics := s.Instrumentation.Metrics()
	metrics.RecordRateLimitExceeded(ctx, limiter)
	if limiter == limiterCheck {
		metrics.RecordSessionCheck(ctx, instrumentation.ResultRateLimited)
	} else {
		metrics.RecordAuthAttempt(ctx, instrumentation.ResultRateLimited)
	}

	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrRateLimiter, limiter))
	instrumentation.SetSpanError(span, "rate limited")

	return oops.In(errorDomain).Code(CodeRateLimited).
		With("limiter", limiter, "request_id", requestID, contextRetryAfter, retryAfter).
		Wrap(ErrRateLimited)
}

// authFailed records a rejected credential submission and returns the wrapped error.
func (s *Server) authFailed(ctx context.Context, span trace.Span, key, requestID, reason, code string, sentinel error) error {
	s.Logger.Info("Authentication failed",
		"client_key", key,
		"reason", reason,
		"request_id", requestID)
	s.Auditor.LogAuthFailure(key, requestID, reason)
	s.Instrumentation.Metrics().RecordAuthAttempt(ctx, instrumentation.ResultFailure)
	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrAuthResult, instrumentation.ResultFailure))
	instrumentation.SetSpanError(span, reason)

	return oops.In(errorDomain).Code(code).
		With("reason", reason, "request_id", requestID).
		Wrap(sentinel)
}

func (s *Server) setSessionResult(span trace.Span, result, reason string) {
	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrSessionResult, result),
		attribute.String(instrumentation.AttrSessionReason, reason),
	)
}
