package restclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-alert-relay/internal/config"
)

// APIError describes a failed call to a remote API: a transport failure
// (StatusCode 0), a non-2xx response, or a 2xx response whose body could not
// be decoded (Err set alongside StatusCode).
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: request failed with status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// Client wraps a resty client with request pacing and uniform error handling.
// Requests are attempted once; nothing is retried.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// New creates a Client for baseURL. A nil httpClient selects resty's default
// transport; the social API passes an OAuth1 signing client here.
func New(baseURL string, cfg *config.HTTP, httpClient *http.Client, logger *zap.Logger) *Client {
	var client *resty.Client
	if httpClient != nil {
		client = resty.NewWithClient(httpClient)
	} else {
		client = resty.New()
	}
	client.SetBaseURL(baseURL)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	return NewWithLimiter(client, rate.NewLimiter(limit, burst), logger)
}

// NewWithLimiter assembles a Client from prepared parts.
func NewWithLimiter(client *resty.Client, limiter *rate.Limiter, logger *zap.Logger) *Client {
	return &Client{client: client, logger: logger, limiter: limiter}
}

// R starts a new request bound to ctx. Both APIs answer in JSON, so bodies
// are decoded into SetResult targets whatever Content-Type they are sent with.
func (c *Client) R(ctx context.Context) *resty.Request {
	return c.client.R().SetContext(ctx).ForceContentType("application/json")
}

// Do executes req once after waiting for the rate limiter.
func (c *Client) Do(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
	resp, err := req.Execute(method, url)
	if err != nil {
		// resty returns the response along with the error when a 2xx body
		// does not decode into the SetResult target.
		if resp != nil && resp.RawResponse != nil && resp.IsSuccess() {
			return nil, Malformed(method, url, resp, err)
		}
		return nil, &APIError{Method: method, URL: url, Err: err}
	}
	if resp.IsError() {
		return nil, &APIError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}
	return resp, nil
}

// Malformed reports a response body that could not be decoded.
func Malformed(method, url string, resp *resty.Response, err error) *APIError {
	return &APIError{
		Method:     method,
		URL:        url,
		StatusCode: resp.StatusCode(),
		Body:       resp.String(),
		Err:        fmt.Errorf("malformed response: %w", err),
	}
}
