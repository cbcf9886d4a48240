package sitegate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/sitegate/instrumentation"
	"github.com/giantswarm/sitegate/security"
)

// Handler is a thin HTTP adapter for the Server.
// It handles HTTP requests and delegates to the Server for business logic.
type Handler struct {
	server *Server
	logger *slog.Logger
	tracer trace.Tracer // OpenTelemetry tracer for HTTP layer
}

// NewHandler creates a new HTTP handler
func NewHandler(server *Server, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = server.Logger
	}

	return &Handler{
		server: server,
		logger: logger,
		tracer: server.Instrumentation.Tracer("http"),
	}
}

// RegisterRoutes mounts both endpoints on mux under Config.RoutePrefix,
// wrapped in the request ID middleware.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	prefix := h.server.Config.RoutePrefix
	mux.Handle(prefix+PathAuthenticate, security.RequestIDMiddleware(http.HandlerFunc(h.ServeAuthenticate)))
	mux.Handle(prefix+PathCheckAuth, security.RequestIDMiddleware(http.HandlerFunc(h.ServeCheckAuth)))
}

// ServeAuthenticate handles POST /authenticate.
//
// Responses:
//   - 405 {"message":"Method Not Allowed"} for any other method
//   - 500 {"message":"Internal Server Error"} when no secret is configured
//   - 429 {"message":"Too many attempts. Please try again later."} with Retry-After
//   - 401 {"message":"Incorrect password"} for every other failure
//   - 200 {"success":true} with the session cookie
func (h *Handler) ServeAuthenticate(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx, span := h.tracer.Start(r.Context(), "http.authenticate")
	defer span.End()

	status := h.serveAuthenticate(ctx, w, r)

	instrumentation.AddHTTPAttributes(span, r.Method, PathAuthenticate, status)
	h.recordHTTPMetrics(ctx, PathAuthenticate, r.Method, status, startTime)
}

func (h *Handler) serveAuthenticate(ctx context.Context, w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		return h.writeJSON(w, http.StatusMethodNotAllowed, MessageResponse{Message: MessageMethodNotAllowed})
	}

	cfg := h.server.Config
	session, err := h.server.Authenticate(ctx, Attempt{
		ClientIP:  security.GetClientIP(r, cfg.RateLimit.TrustProxy, cfg.RateLimit.TrustedProxyCount),
		Device:    r.Header.Get(cfg.Security.DeviceHeader),
		Password:  h.decodePassword(w, r),
		RequestID: security.GetRequestID(r.Context()),
	})
	if err != nil {
		status := StatusForError(err)
		switch status {
		case http.StatusInternalServerError:
			return h.writeJSON(w, status, MessageResponse{Message: MessageInternalError})
		case http.StatusTooManyRequests:
			setRetryAfter(w, RetryAfter(err, cfg.RateLimit.AuthWindow))
			return h.writeJSON(w, status, MessageResponse{Message: MessageTooManyAttempts})
		default:
			return h.writeJSON(w, http.StatusUnauthorized, MessageResponse{Message: MessageIncorrect})
		}
	}

	http.SetCookie(w, h.sessionCookie(session))
	return h.writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// decodePassword reads the JSON body, capped at MaxRequestBodySize. Any
// decoding failure yields "", which the server rejects as malformed input.
func (h *Handler) decodePassword(w http.ResponseWriter, r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req AuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.logger.Debug("Authentication body too large", "limit", maxErr.Limit)
		}
		return ""
	}
	return req.Password
}

// ServeCheckAuth handles GET /check-auth. Every response body is
// {"authenticated": bool}: 200 true for a valid session, 405 for methods
// other than GET and HEAD, 429 when rate limited, 500 when no secret is
// configured and 401 otherwise.
func (h *Handler) ServeCheckAuth(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx, span := h.tracer.Start(r.Context(), "http.check_auth")
	defer span.End()

	status := h.serveCheckAuth(ctx, w, r)

	instrumentation.AddHTTPAttributes(span, r.Method, PathCheckAuth, status)
	h.recordHTTPMetrics(ctx, PathCheckAuth, r.Method, status, startTime)
}

func (h *Handler) serveCheckAuth(ctx context.Context, w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		return h.writeJSON(w, http.StatusMethodNotAllowed, CheckAuthResponse{})
	}

	cfg := h.server.Config
	check := SessionCheck{
		ClientIP:  security.GetClientIP(r, cfg.RateLimit.TrustProxy, cfg.RateLimit.TrustedProxyCount),
		Device:    r.Header.Get(cfg.Security.DeviceHeader),
		RequestID: security.GetRequestID(r.Context()),
	}
	if cookie, err := r.Cookie(cfg.Cookie.Name); err == nil {
		check.Token = cookie.Value
	}

	if err := h.server.CheckSession(ctx, check); err != nil {
		status := StatusForError(err)
		if status == http.StatusTooManyRequests {
			setRetryAfter(w, RetryAfter(err, cfg.RateLimit.CheckWindow))
		}
		return h.writeJSON(w, status, CheckAuthResponse{})
	}

	return h.writeJSON(w, http.StatusOK, CheckAuthResponse{Authenticated: true})
}

// sessionCookie builds the HttpOnly, SameSite=Strict session cookie.
func (h *Handler) sessionCookie(session *Session) *http.Cookie {
	cfg := h.server.Config
	return &http.Cookie{
		Name:     cfg.Cookie.Name,
		Value:    session.Token,
		Path:     cfg.Cookie.Path,
		Domain:   cfg.Cookie.Domain,
		Expires:  session.ExpiresAt,
		MaxAge:   int(session.TTL / time.Second),
		HttpOnly: true,
		Secure:   cfg.Security.Production,
		SameSite: http.SameSiteStrictMode,
	}
}

// writeJSON writes body with security headers and returns status.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) int {
	security.SetSecurityHeaders(w, h.server.Config.Security.Production)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Debug("Failed to write response", "error", err)
	}
	return status
}

// setRetryAfter writes wait in whole seconds, rounded up and at least 1.
func setRetryAfter(w http.ResponseWriter, wait time.Duration) {
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}

// recordHTTPMetrics records HTTP request metrics
func (h *Handler) recordHTTPMetrics(ctx context.Context, endpoint, method string, status int, startTime time.Time) {
	duration := time.Since(startTime).Seconds() * 1000 // convert to milliseconds
	h.server.Instrumentation.Metrics().RecordHTTPRequest(ctx, method, endpoint, status, duration)
}
