// Package client is the Go SDK for the brokerage API. It owns the token
// lifecycle: requests carry the stored access token, a 401 triggers one
// transparent refresh-and-retry, and a failed refresh tears the session down.
// Concurrent 401s share a single refresh via singleflight.
package client

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/homevista/brokerage/client/tokenstore"
)

// Config holds client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.homevista.example".
	BaseURL string

	// TokenDir is the directory backing the durable token scope.
	TokenDir string

	// Timeout is the per-request ceiling. Defaults to 30 seconds.
	Timeout time.Duration

	// Retry is the policy the bounded-retry helper applies.
	Retry RetryConfig

	// Breaker configures the outbound circuit breaker.
	Breaker BreakerConfig

	// Logger receives client diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// OnSessionExpired is invoked after a forced logout, once per teardown.
	// UI embedders use it to navigate to the login screen.
	OnSessionExpired func()
}

// DefaultConfig returns sensible defaults for the given API root.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
		Retry:   DefaultRetryConfig(),
		Breaker: DefaultBreakerConfig("brokerage-api"),
	}
}

// Client talks to the brokerage API on behalf of one logical session.
type Client struct {
	baseURL          string
	httpClient       *http.Client
	tokens           *tokenstore.Store
	breaker          *gobreaker.CircuitBreaker[*http.Response]
	logger           *slog.Logger
	refreshGroup     singleflight.Group
	onSessionExpired func()
	retry            RetryConfig
}

// New creates a client. The base URL must be absolute.
func New(cfg Config) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || !parsed.IsAbs() {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = DefaultBreakerConfig("brokerage-api")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		tokens:           tokenstore.New(cfg.TokenDir),
		breaker:          newBreaker(cfg.Breaker, logger),
		logger:           logger,
		onSessionExpired: cfg.OnSessionExpired,
		retry:            cfg.Retry,
	}, nil
}

// Tokens exposes the underlying token store, mainly for session restore.
func (c *Client) Tokens() *tokenstore.Store {
	return c.tokens
}

// endpoint joins the API root with a path under /api/v1.
func (c *Client) endpoint(path string) string {
	return c.baseURL + "/api/v1" + path
}
