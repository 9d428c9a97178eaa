package billingclient

import (
	"context"
	"net/http"
)

// TokenFunc resolves the bearer token for an outbound call.
type TokenFunc func(ctx context.Context) string

type Client struct {
	cfg     Config
	http    *http.Client
	retry   RetryPolicy
	limiter *RateLimiter
	breaker CircuitBreaker
	token   TokenFunc
}

func NewFromEnv() *Client {
	return New(LoadFromEnv())
}

func New(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		retry: RetryPolicy{
			MaxRetries: cfg.RetryCount,
			BaseDelay:  cfg.RetryDelay,
		},
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		breaker: NewCircuitBreaker(cfg),
		token: func(context.Context) string {
			return cfg.APIKey
		},
	}
}

// WithTokenFunc makes the client forward a per-request credential, falling
// back to the configured API key when the function returns "".
func (c *Client) WithTokenFunc(fn TokenFunc) *Client {
	apiKey := c.cfg.APIKey
	c.token = func(ctx context.Context) string {
		if t := fn(ctx); t != "" {
			return t
		}
		return apiKey
	}
	return c
}
