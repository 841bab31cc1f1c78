package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
)

// DefaultJupiterURL is the public Jupiter Price API v2 endpoint.
const DefaultJupiterURL = "https://api.jup.ag/price/v2"

// APIError represents an error response from the price API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("price api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// JupiterClient fetches spot prices from the Jupiter Price API.
type JupiterClient struct {
	baseURL string
	client  *fasthttp.Client
	logger  *slog.Logger

	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
}

// JupiterOption configures a JupiterClient.
type JupiterOption func(*JupiterClient)

// NewJupiterClient creates a new price client. An empty baseURL selects
// the public endpoint.
func NewJupiterClient(baseURL string, opts ...JupiterOption) *JupiterClient {
	if baseURL == "" {
		baseURL = DefaultJupiterURL
	}

	c := &JupiterClient{
		baseURL:      baseURL,
		client:       &fasthttp.Client{},
		logger:       slog.Default(),
		timeout:      10 * time.Second,
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) JupiterOption {
	return func(c *JupiterClient) {
		c.timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) JupiterOption {
	return func(c *JupiterClient) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) JupiterOption {
	return func(c *JupiterClient) {
		c.logger = logger
	}
}

// FetchPrice returns the current price of mint denominated in vsToken.
func (c *JupiterClient) FetchPrice(ctx context.Context, mint, vsToken solana.PublicKey) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s?ids=%s&vsToken=%s", c.baseURL, mint, vsToken)

	body, err := c.getWithRetry(ctx, url)
	if err != nil {
		return decimal.Decimal{}, err
	}

	// Base58 addresses never contain gjson path metacharacters.
	price := gjson.GetBytes(body, "data."+mint.String()+".price")
	if !price.Exists() || price.String() == "" {
		return decimal.Decimal{}, fmt.Errorf("no price for mint %s", mint)
	}

	px, err := decimal.NewFromString(price.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse price %q: %w", price.String(), err)
	}

	return px, nil
}

// get performs a single GET request.
func (c *JupiterClient) get(url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	status := resp.StatusCode()
	// Response objects are pooled; copy the body out before release.
	body := append([]byte(nil), resp.Body()...)

	if status >= 400 {
		return nil, &APIError{
			StatusCode: status,
			Message:    fasthttp.StatusMessage(status),
			Body:       body,
		}
	}

	return body, nil
}

// getWithRetry performs a GET with exponential backoff retry.
func (c *JupiterClient) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			c.logger.Debug("retrying price fetch",
				"attempt", attempt,
				"backoff", jitter,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		body, err := c.get(url)
		if err == nil {
			return body, nil
		}

		lastErr = err

		// Check if error is retryable
		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
