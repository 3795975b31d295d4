// Package client provides the core openFDA HTTP client with rate
// limiting, hybrid pagination, optional response caching, and a typed
// error taxonomy.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openfda-go/openfda-client/pkg/cache"
	"github.com/openfda-go/openfda-client/pkg/pagination"
	"github.com/openfda-go/openfda-client/pkg/query"
	"github.com/openfda-go/openfda-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the production openFDA API.
const DefaultBaseURL = "https://api.fda.gov"

// Prometheus metrics for openFDA client operations.
var (
	fdaRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fda_requests_total",
		Help: "Total openFDA requests by endpoint and status",
	}, []string{"endpoint", "status"})

	fdaRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fda_request_duration_seconds",
		Help:    "openFDA request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	fdaErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fda_errors_total",
		Help: "Total openFDA errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API (default: DefaultBaseURL). Override for tests.
	BaseURL string

	// APIKey is sent as the api_key query parameter when set. A key
	// raises the daily quota default.
	APIKey string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per HTTP request.
	Timeout time.Duration

	// RateLimit quotas. The zero value selects the openFDA defaults for
	// the session (keyed or anonymous); to uncap a window explicitly,
	// set it to a negative value.
	RateLimit ratelimit.Config

	// Redis enables the page response cache when non-nil.
	Redis *redis.Client

	// CacheTTL is how long cached pages stay fresh.
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: "openfda-go-client/1.0",
		Timeout:   30 * time.Second,
		CacheTTL:  15 * time.Minute,
	}
}

// Client is the openFDA client. One instance is one session: it owns the
// rate limiter state for its lifetime and is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	cache      *cache.Manager
	engine     *pagination.Engine
	config     Config
	logger     zerolog.Logger
}

// New creates a new openFDA client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == (ratelimit.Config{}) {
		cfg.RateLimit = ratelimit.DefaultConfig(cfg.APIKey != "")
	}
	if cfg.Redis != nil && cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache_ttl must be positive when redis is configured")
	}

	logger := log.With().Str("component", "fda-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: ratelimit.New(cfg.RateLimit, logger),
		config:  cfg,
		logger:  logger,
	}

	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	c.engine = pagination.NewEngine(c, c.limiter, logger)

	return c, nil
}

// Search is the public entry point: it runs q to completion, stitching
// pages together under rate limiter control. Errors surface the typed
// taxonomy: *query.ValidationError, *pagination.Error, *TransportError,
// *HTTPError, *DecodeError.
func (c *Client) Search(ctx context.Context, q query.Query) (*query.Result, error) {
	return c.engine.Run(ctx, q)
}

// apiResponse is the openFDA page envelope.
type apiResponse struct {
	Meta struct {
		Results struct {
			Skip  int `json:"skip"`
			Limit int `json:"limit"`
			Total int `json:"total"`
		} `json:"results"`
	} `json:"meta"`
	Results []map[string]any `json:"results"`
}

// apiError is the openFDA error envelope.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchPage performs one bounded page retrieval. It implements
// pagination.Fetcher and does not retry; the caller decides what a
// failure means.
func (c *Client) FetchPage(ctx context.Context, req pagination.PageRequest) (pagination.Page, error) {
	endpoint := string(req.Endpoint)
	params := c.buildParams(req)

	startTime := time.Now()
	defer func() {
		fdaRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Cache lookup happens after the caller's rate limit acquisition,
	// same as every other fetch; a hit simply skips the network.
	var cacheKey cache.Key
	if c.cache != nil {
		cacheKey = cache.Key{Endpoint: endpoint, Params: params}
		if entry, err := c.cache.Get(ctx, cacheKey); err == nil {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Msg("Serving page from cache")
			return c.decodePage(endpoint, entry.Data)
		} else if err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// The key is appended after cache key construction so it never
	// becomes part of a Redis key.
	if c.config.APIKey != "" {
		params.Set("api_key", c.config.APIKey)
	}

	reqURL := c.config.BaseURL + endpoint + "?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return pagination.Page{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("page_size", req.PageSize).
		Int("skip", req.Skip).
		Bool("cursor", req.Cursor).
		Msg("Executing openFDA request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		fdaErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		fdaRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return pagination.Page{}, &TransportError{URL: c.config.BaseURL + endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fdaErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return pagination.Page{}, &TransportError{URL: c.config.BaseURL + endpoint, Err: err}
	}

	fdaRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    resp.Status,
		}
		// The API wraps error details in an error envelope; prefer its
		// message when present.
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			httpErr.Message = apiErr.Error.Message
		}
		fdaErrorsTotal.WithLabelValues(string(httpErr.Class())).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(httpErr.Class())).
			Msg("openFDA request error")
		return pagination.Page{}, httpErr
	}

	page, err := c.decodePage(endpoint, body)
	if err != nil {
		return pagination.Page{}, err
	}

	if c.cache != nil {
		if cerr := c.cache.Set(ctx, cacheKey, cache.NewEntry(body, c.config.CacheTTL)); cerr != nil {
			c.logger.Warn().Err(cerr).Str("endpoint", endpoint).Msg("Failed to cache page")
		}
	}

	return page, nil
}

// decodePage parses the openFDA page envelope.
func (c *Client) decodePage(endpoint string, body []byte) (pagination.Page, error) {
	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		fdaErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return pagination.Page{}, &DecodeError{Endpoint: endpoint, Err: err}
	}

	records := make([]query.Record, 0, len(decoded.Results))
	for _, raw := range decoded.Results {
		records = append(records, query.Record{Raw: raw})
	}

	return pagination.Page{
		Records: records,
		Total:   decoded.Meta.Results.Total,
	}, nil
}

// buildParams translates a page request into API query parameters.
// Exactly one of skip or search_after is sent. Sort values must carry no
// spaces; the API rejects "field: asc".
func (c *Client) buildParams(req pagination.PageRequest) url.Values {
	params := url.Values{}

	if req.Search != "" {
		params.Set("search", req.Search)
	}
	if req.Sort != "" {
		params.Set("sort", strings.ReplaceAll(req.Sort, " ", ""))
	}
	if req.Count != "" {
		params.Set("count", req.Count)
	}

	params.Set("limit", strconv.Itoa(req.PageSize))

	if req.Cursor {
		if req.SearchAfter != "" {
			params.Set("search_after", req.SearchAfter)
		}
	} else if req.Skip > 0 {
		params.Set("skip", strconv.Itoa(req.Skip))
	}

	return params
}

// Limiter exposes the session's rate limiter, e.g. to share it with a
// second client or inspect window occupancy in tests.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Close releases idle transport resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
