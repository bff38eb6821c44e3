// Package apiclient issues JSON requests against the backend with a bounded
// per-attempt timeout and linear-backoff retries.
//
// Failures are returned as *apperr.AppError. The client never touches
// session state: callers attach the bearer token with WithBearer.
package apiclient

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout       = 10 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second

	// RequestIDHeader carries the per-call request id.
	RequestIDHeader = "X-Request-Id"

	maxResponseBytes = 4 << 20
	defaultUserAgent = "focusflow"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is safe for concurrent use.
type Client struct {
	baseURL   string
	http      Doer
	timeout   time.Duration
	attempts  int
	delay     time.Duration
	limiter   *rate.Limiter
	userAgent string
	logger    *slog.Logger

	// onBackoff observes each computed retry delay.
	onBackoff func(retry int, delay time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetry sets the total number of attempts and the linear backoff unit.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		if delay < 0 {
			delay = 0
		}
		c.attempts = attempts
		c.delay = delay
	}
}

// WithHTTPClient replaces the transport, typically with a stub in tests.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRateLimit caps outbound attempts. A zero limit disables limiting.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL:   strings.TrimRight(trimmed, "/"),
		http:      &http.Client{},
		timeout:   DefaultTimeout,
		attempts:  DefaultRetryAttempts,
		delay:     DefaultRetryDelay,
		userAgent: defaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Secure reports whether the API is reached over TLS.
func (c *Client) Secure() bool { return strings.HasPrefix(c.baseURL, "https://") }

func (c *Client) url(endpoint string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) == 0 {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + query.Encode()
}
