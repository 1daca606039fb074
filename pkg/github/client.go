// Package github provides the rate-limit-aware GitHub API client with
// retry, quota handling, and optional response caching.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/orgpulse/orgpulse/pkg/cache"
)

// DefaultBaseURL is the public GitHub API base URL.
const DefaultBaseURL = "https://api.github.com"

// Prometheus metrics for API client operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_api_requests_total",
		Help: "Total GitHub API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "github_api_request_duration_seconds",
		Help:    "GitHub API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})
)

// Config holds the client configuration.
type Config struct {
	// Token is the bearer token for the Authorization header (required).
	Token string

	// BaseURL overrides the API base URL (tests point this at a mock).
	BaseURL string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxRetries is the maximum attempt count per call, including the
	// initial request.
	MaxRetries int

	// Backoff is the base for the exponential backoff wait
	// (backoff * 2^attempt).
	Backoff time.Duration

	// RequestsPerSecond paces outbound requests with a token bucket so a
	// full-speed batch run stays under secondary limits.
	RequestsPerSecond float64

	// Cache is an optional Redis-backed response cache for REST GETs.
	Cache *cache.Manager

	// UserAgent identifies the tool to the API.
	UserAgent string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(token string) Config {
	return Config{
		Token:             token,
		BaseURL:           DefaultBaseURL,
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		Backoff:           2 * time.Second,
		RequestsPerSecond: 2,
		UserAgent:         "orgpulse/0.1.0",
	}
}

// Client is the GitHub API client shared by all extractors. Its
// configuration is immutable after New, so concurrent workers may share a
// single instance without locking.
type Client struct {
	httpClient *http.Client
	config     Config
	pacer      *rate.Limiter
	cache      *cache.Manager
	logger     zerolog.Logger

	// sleep is swapped out in tests to observe computed waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new GitHub API client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "orgpulse/0.1.0"
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = cfg.Timeout

	logger := log.With().Str("component", "github-client").Logger()

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		pacer:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cache:      cfg.Cache,
		logger:     logger,
		sleep:      sleepContext,
	}, nil
}

// GraphQL executes a GraphQL operation and returns the decoded data
// payload. The retry policy in withRetry applies.
func (c *Client) GraphQL(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql payload: %w", err)
	}

	return c.withRetry(ctx, "graphql", func(ctx context.Context) (json.RawMessage, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/graphql", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("create graphql request: %w", err)
		}
		c.setHeaders(req)
		req.Header.Set("Content-Type", "application/json")

		body, status, _, err := c.roundTrip(req, "graphql")
		if err != nil {
			return nil, err
		}
		if err := classifyStatus(status, body); err != nil {
			return nil, err
		}

		var resp struct {
			Data   json.RawMessage `json:"data"`
			Errors []struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"errors"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &APIError{
				StatusCode: status,
				ErrorClass: ErrorClassHTTP,
				Message:    "undecodable graphql response",
				Err:        err,
			}
		}

		if len(resp.Errors) > 0 {
			messages := make([]string, 0, len(resp.Errors))
			for _, e := range resp.Errors {
				c.logger.Error().
					Str("type", e.Type).
					Str("message", e.Message).
					Msg("GraphQL error")
				messages = append(messages, e.Message)
			}
			joined := strings.Join(messages, "; ")

			class := ErrorClassGraphQL
			for _, e := range resp.Errors {
				if e.Type == "RATE_LIMITED" || isRateLimitText(e.Message) {
					class = ErrorClassRateLimit
					break
				}
			}
			return nil, &APIError{
				StatusCode: status,
				ErrorClass: class,
				Message:    joined,
			}
		}

		return resp.Data, nil
	})
}

// Get executes a REST GET against an endpoint relative to the base URL and
// returns the raw response body. The retry policy in withRetry applies.
// When a cache is configured, a fresh cached entry is revalidated with a
// conditional request and 304 responses are served from cache.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	endpoint = strings.TrimLeft(endpoint, "/")
	target := c.config.BaseURL + "/" + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var entry *cache.Entry
	if c.cache != nil {
		key := cache.Key{Endpoint: endpoint, QueryParams: params}
		cached, err := c.cache.Get(ctx, key)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		entry = cached
	}

	return c.withRetry(ctx, endpoint, func(ctx context.Context) (json.RawMessage, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		c.setHeaders(req)
		if cache.CanRevalidate(entry) {
			cache.AddConditionalHeaders(req, entry)
			c.logger.Debug().
				Str("endpoint", endpoint).
				Str("etag", entry.ETag).
				Msg("Making conditional request")
		}

		body, status, header, err := c.roundTrip(req, endpoint)
		if err != nil {
			return nil, err
		}

		if status == http.StatusNotModified && entry != nil {
			cache.NotModifiedResponses.Inc()
			c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - serving from cache")
			return entry.Data, nil
		}

		if err := classifyStatus(status, body); err != nil {
			return nil, err
		}

		if c.cache != nil {
			c.storeInCache(ctx, endpoint, params, status, header, body)
		}

		return body, nil
	})
}

// roundTrip executes a single HTTP attempt, recording metrics. Transport
// failures come back classified as network errors.
func (c *Client) roundTrip(req *http.Request, endpoint string) ([]byte, int, http.Header, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, 0, nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Message:    "transport failure",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, resp.Header, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}
	return body, resp.StatusCode, resp.Header, nil
}

// classifyStatus maps a non-200 HTTP status to a classified error.
func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusOK, status == http.StatusNotModified:
		return nil
	case status == http.StatusUnauthorized:
		return &APIError{
			StatusCode: status,
			ErrorClass: ErrorClassAuth,
			Message:    "check your GitHub token",
			Err:        ErrAuthentication,
		}
	case status == http.StatusForbidden && isRateLimitText(string(body)):
		return &APIError{
			StatusCode: status,
			ErrorClass: ErrorClassRateLimit,
			Message:    "rate limit exceeded",
		}
	default:
		return &APIError{
			StatusCode: status,
			ErrorClass: ErrorClassHTTP,
			Message:    truncate(string(body), 200),
		}
	}
}

// storeInCache writes a successful REST response into the cache. Failures
// are logged, never propagated.
func (c *Client) storeInCache(ctx context.Context, endpoint string, params url.Values, status int, header http.Header, body []byte) {
	entry := cache.NewEntry(status, header, body)
	if entry.TTL() <= 0 {
		return
	}
	key := cache.Key{Endpoint: endpoint, QueryParams: params}
	if err := c.cache.Set(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache response")
		return
	}
	c.logger.Debug().
		Str("endpoint", endpoint).
		Dur("ttl", entry.TTL()).
		Msg("Cached response")
}

// setHeaders applies the headers every API request carries. The
// Authorization header is injected by the oauth2 transport.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", c.config.UserAgent)
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
