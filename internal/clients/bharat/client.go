// Package bharat provides a client for the BharatQuote market-data API,
// the upstream source of NSE/BSE prices, ticker suggestions, and financial
// ratios. Responses are loosely typed (prices arrive as currency-formatted
// strings or numbers); this client is the normalization boundary.
package bharat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/rachitbansal/nivesh/internal/common"
	"github.com/rachitbansal/nivesh/internal/models"
	"github.com/rachitbansal/nivesh/internal/normalize"
)

const (
	DefaultBaseURL   = "https://api.bharatquote.in"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements interfaces.MarketDataClient against the BharatQuote API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new BharatQuote client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
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

// APIError represents an upstream API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bharatquote API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request and decodes the JSON response
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return common.NewTransientFetchError("GET "+path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return common.NewTransientFetchError("read response "+path, err)
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("BharatQuote request")

	if resp.StatusCode == http.StatusNotFound {
		return common.NewNotFoundError("resource", path)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
			Endpoint:   path,
		}
		return common.NewTransientFetchError("GET "+path, apiErr)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}

// errorMessage pulls the error field out of an upstream error payload,
// falling back to the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}

// rawQuote is the upstream quote payload. Prices may be numbers or
// currency-formatted strings ("₹410.65"); absent fields decode to zero.
type rawQuote struct {
	Name          string              `json:"name"`
	Price         normalize.FlexFloat `json:"price"`
	PreviousClose normalize.FlexFloat `json:"previous_close"`
}

// GetQuote retrieves the current price and previous close for a symbol
func (c *Client) GetQuote(ctx context.Context, symbol string, exchange models.Exchange) (*models.StockPrice, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if exchange != "" {
		params.Set("exchange", string(exchange))
	}

	var raw rawQuote
	if err := c.get(ctx, "/v1/quote", params, &raw); err != nil {
		return nil, err
	}

	return &models.StockPrice{
		Symbol:        symbol,
		Name:          raw.Name,
		Price:         raw.Price.Float64(),
		PreviousClose: raw.PreviousClose.Float64(),
	}, nil
}

// GetSuggestions retrieves ticker suggestions for a partial query
func (c *Client) GetSuggestions(ctx context.Context, query string) ([]models.Suggestion, error) {
	if len(query) < 1 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", query)

	var raw struct {
		Suggestions []models.Suggestion `json:"suggestions"`
	}
	if err := c.get(ctx, "/v1/suggestions", params, &raw); err != nil {
		return nil, err
	}
	return raw.Suggestions, nil
}

// GetRatios retrieves the financial ratio set for a ticker
func (c *Client) GetRatios(ctx context.Context, ticker string) (models.RatioSet, error) {
	var raw struct {
		Ratios models.RatioSet `json:"ratios"`
	}
	if err := c.get(ctx, "/v1/ratios/"+url.PathEscape(ticker), nil, &raw); err != nil {
		return nil, err
	}
	return raw.Ratios, nil
}

// GetQuarterly retrieves the quarterly results table for a ticker
func (c *Client) GetQuarterly(ctx context.Context, ticker string) (*models.QuarterlyResults, error) {
	var raw struct {
		Quarterly models.QuarterlyResults `json:"quarterly"`
	}
	if err := c.get(ctx, "/v1/quarterly/"+url.PathEscape(ticker), nil, &raw); err != nil {
		return nil, err
	}
	return &raw.Quarterly, nil
}
