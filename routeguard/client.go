package routeguard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Errors returned by Client.Authenticate.
var (
	ErrIncorrectPassword   = errors.New("incorrect password")
	ErrTooManyAttempts     = errors.New("too many attempts")
	ErrServerMisconfigured = errors.New("server misconfigured")
	ErrUnexpectedResponse  = errors.New("unexpected response")
)

const (
	// DefaultMaxRetries is the number of retries after a failed transport
	// attempt, for three attempts in total.
	DefaultMaxRetries = 2

	// DefaultRetryBase is the first backoff delay; later delays double.
	DefaultRetryBase = 100 * time.Millisecond

	// DefaultTimeout bounds each HTTP attempt.
	DefaultTimeout = 10 * time.Second

	maxResponseSize = 4 << 10
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is where the endpoints are mounted, e.g. "https://example.com/api".
	BaseURL string

	// HTTPClient is used for requests. A cookie jar is added when it has none.
	// Default: a client with DefaultTimeout.
	HTTPClient *http.Client

	// MaxRetries is how often a transport failure of a session check is
	// retried. Password submissions are never retried. Negative disables retries.
	// Default: 2
	MaxRetries int

	// RetryBase is the first backoff delay.
	// Default: 100ms
	RetryBase time.Duration

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger
}

// Client calls the session endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
	retryBase  time.Duration
	logger     *slog.Logger
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, oops.In("routeguard").Code("CONFIG_INVALID").Errorf("base URL is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, oops.In("routeguard").Code("CONFIG_INVALID").Wrap(err)
		}
		c := *httpClient
		c.Jar = jar
		httpClient = &c
	}

	var maxRetries uint64
	switch {
	case cfg.MaxRetries > 0:
		maxRetries = uint64(cfg.MaxRetries)
	case cfg.MaxRetries == 0:
		maxRetries = DefaultMaxRetries
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = DefaultRetryBase
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
		maxRetries: maxRetries,
		retryBase:  retryBase,
		logger:     logger,
	}, nil
}

// CheckAuth reports whether the current session cookie is valid.
//
// Only a 200 response with a JSON content type whose body decodes to
// {"authenticated": true} counts. Any other status or body, including an
// HTML fallback page served with 200, is unauthenticated. An error means the
// endpoint could not be reached.
func (c *Client) CheckAuth(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/check-auth", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || !isJSON(resp) {
		return false, nil
	}

	var body struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		c.logger.Debug("check-auth returned an undecodable body", "error", err)
		return false, nil
	}
	return body.Authenticated, nil
}

// Authenticate submits password. On success the session cookie is stored in
// the client's cookie jar.
func (c *Client) Authenticate(ctx context.Context, password string) error {
	payload, err := json.Marshal(struct {
		Password string `json:"password"`
	}{password})
	if err != nil {
		return oops.In("routeguard").Wrap(err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/authenticate", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			Success bool `json:"success"`
		}
		if !isJSON(resp) || json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body) != nil || !body.Success {
			return oops.In("routeguard").Code("UNEXPECTED_RESPONSE").With("status", resp.StatusCode).Wrap(ErrUnexpectedResponse)
		}
		return nil
	case http.StatusTooManyRequests:
		return oops.In("routeguard").Code("TOO_MANY_ATTEMPTS").With("retry_after", resp.Header.Get("Retry-After")).Wrap(ErrTooManyAttempts)
	case http.StatusInternalServerError:
		return oops.In("routeguard").Code("SERVER_MISCONFIGURED").Wrap(ErrServerMisconfigured)
	case http.StatusUnauthorized:
		return oops.In("routeguard").Code("INCORRECT_PASSWORD").Wrap(ErrIncorrectPassword)
	default:
		return oops.In("routeguard").Code("UNEXPECTED_RESPONSE").With("status", resp.StatusCode).Wrap(ErrUnexpectedResponse)
	}
}

// do sends one request. Transport failures of GET and HEAD requests are
// retried with exponential backoff; other methods are sent once, since a
// lost response may hide a request the server already counted. HTTP
// responses of any status are returned as-is.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	url := c.baseURL + path
	retries := c.maxRetries
	if method != http.MethodGet && method != http.MethodHead {
		retries = 0
	}
	backoff := retry.WithMaxRetries(retries, retry.NewExponential(c.retryBase))

	var resp *http.Response
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		r, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Debug("request failed", "method", method, "path", path, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, oops.In("routeguard").Code("REQUEST_FAILED").
			With("method", method, "path", path, "attempts", attempt).
			Wrap(err)
	}
	return resp, nil
}

func isJSON(resp *http.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
