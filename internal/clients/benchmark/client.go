// Package benchmark provides a client for the benchmark index service
package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/navboard/internal/common"
	"github.com/bobmcallan/navboard/internal/interfaces"
	"github.com/bobmcallan/navboard/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
// Unparseable strings decode to NaN so the analytics layer can forward-fill them.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = flexFloat64(math.NaN())
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	if string(data) == "null" {
		*f = flexFloat64(math.NaN())
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements interfaces.BenchmarkClient over HTTP
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new benchmark client
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromConfig builds a client from the [benchmark] config section.
// Returns nil when no base URL is configured.
func NewClientFromConfig(cfg common.BenchmarkConfig, logger *common.Logger) interfaces.BenchmarkClient {
	if cfg.BaseURL == "" {
		return nil
	}
	client := NewClient(cfg.BaseURL, cfg.APIKey,
		WithLogger(logger),
		WithRateLimit(cfg.RateLimit),
		WithTimeout(cfg.GetTimeout()),
	)
	if ttl := cfg.GetCacheTTL(); ttl > 0 {
		return NewCachedClient(client, ttl)
	}
	return client
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("benchmark API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

type levelResponse struct {
	Date  string      `json:"date"`
	Close flexFloat64 `json:"close"`
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("api_token", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", c.baseURL+path).Msg("Benchmark API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetBenchmarkSeries retrieves daily index levels between start and end inclusive.
// Rows with an unparseable date are dropped; unparseable levels are kept as NaN.
func (c *Client) GetBenchmarkSeries(ctx context.Context, index string, start, end time.Time) ([]models.ValuationPoint, error) {
	params := url.Values{}
	if !start.IsZero() {
		params.Set("from", start.UTC().Format(models.DateLayout))
	}
	if !end.IsZero() {
		params.Set("to", end.UTC().Format(models.DateLayout))
	}

	path := fmt.Sprintf("/indices/%s/levels", url.PathEscape(index))

	var levels []levelResponse
	if err := c.get(ctx, path, params, &levels); err != nil {
		return nil, err
	}

	points := make([]models.ValuationPoint, 0, len(levels))
	dropped := 0
	for _, l := range levels {
		date, err := time.Parse(models.DateLayout, l.Date)
		if err != nil {
			dropped++
			continue
		}
		points = append(points, models.ValuationPoint{Date: date, Value: float64(l.Close)})
	}

	if dropped > 0 {
		c.logger.Warn().Str("index", index).Int("dropped", dropped).Msg("Benchmark levels with invalid dates")
	}
	c.logger.Debug().Str("index", index).Int("points", len(points)).Msg("Benchmark series fetched")

	return points, nil
}

// Compile-time check
var _ interfaces.BenchmarkClient = (*Client)(nil)
