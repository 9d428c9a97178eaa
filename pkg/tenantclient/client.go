package tenantclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/correlation"
)

// TokenFunc resolves the bearer token for an outbound call.
type TokenFunc func(ctx context.Context) string

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	token   TokenFunc
}

func NewFromEnv() *Client {
	return New(LoadFromEnv())
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	burst := cfg.RateBurst
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit) / 60
		if burst <= 0 {
			burst = 1
		}
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		token:   func(context.Context) string { return "" },
	}
	if cfg.BreakerEnabled {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "tenant-client",
			Timeout: cfg.BreakerRecovery,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.Requests >= uint32(cfg.BreakerMinRequests) &&
					counts.TotalFailures >= uint32(cfg.BreakerFailures)
			},
			IsSuccessful: func(err error) bool {
				var se *StatusError
				return err == nil || (errors.As(err, &se) && se.Status < 500)
			},
		})
	}
	return c
}

// WithTokenFunc sets how the operator credential is read from the context.
func (c *Client) WithTokenFunc(fn TokenFunc) *Client {
	c.token = fn
	return c
}

// StatusError is a non-success answer from the service. Status is the HTTP
// status, or the 2xx status when the body carried an "error" field.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tenant service error (%d): %s", e.Status, e.Message)
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsUnavailable reports whether the client refused to send because the
// circuit breaker is open.
func IsUnavailable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

type envelope[T any] struct {
	Data  T               `json:"data"`
	Error json.RawMessage `json:"error,omitempty"`
}

/*
|--------------------------------------------------------------------------
| Operations
|--------------------------------------------------------------------------
*/

type changeTierPayload struct {
	NewProductID string `json:"new_product_id"`
	TenantID     int64  `json:"tenant_id"`
}

// ChangeTierResponse reports whether the tenant's new product is billed.
type ChangeTierResponse struct {
	UseBilling bool `json:"use_billing"`
}

// ChangeTier assigns a new product to the tenant. Sent once; a null data
// field reads as UseBilling=false.
func (c *Client) ChangeTier(ctx context.Context, tenantID int64, newProductID string) (*ChangeTierResponse, error) {
	var out envelope[*ChangeTierResponse]
	err := c.do(ctx, http.MethodPost, "/tenant/change_tier", changeTierPayload{
		NewProductID: newProductID,
		TenantID:     tenantID,
	}, &out, false)
	if err != nil {
		return nil, fmt.Errorf("change tier: %w", err)
	}
	if out.Data == nil {
		return &ChangeTierResponse{}, nil
	}
	return out.Data, nil
}

// Decommission deactivates the tenant.
func (c *Client) Decommission(ctx context.Context, tenantID int64) error {
	var out envelope[json.RawMessage]
	err := c.do(ctx, http.MethodPatch, "/tenant/decommission", map[string]int64{
		"tenant_id": tenantID,
	}, &out, false)
	if err != nil {
		return fmt.Errorf("decommission tenant: %w", err)
	}
	return nil
}

// TenantRecord is the tenant as served by the management service.
type TenantRecord struct {
	ID        int64           `json:"tenant_id"`
	Name      string          `json:"name"`
	Status    string          `json:"status"`
	ProductID string          `json:"product_id"`
	Tier      string          `json:"tier"`
	AppID     int64           `json:"app_id"`
	AppName   string          `json:"app_name"`
	Resources *ResourceRecord `json:"resource_information"`
}

type ResourceRecord struct {
	ComputeURL *string `json:"compute_url"`
	AppIcon    *string `json:"app_icon"`
	TenantIcon *string `json:"tenant_icon"`
	ServingURL *string `json:"serving_url"`
}

// GetTenant reads a tenant snapshot.
func (c *Client) GetTenant(ctx context.Context, tenantID int64) (*TenantRecord, error) {
	var out envelope[*TenantRecord]
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tenant/%d", tenantID), nil, &out, true); err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	if out.Data == nil {
		return nil, fmt.Errorf("get tenant: %w", &StatusError{Status: http.StatusNotFound, Message: "empty tenant record"})
	}
	return out.Data, nil
}

/*
|--------------------------------------------------------------------------
| Transport
|--------------------------------------------------------------------------
*/

func (c *Client) do(ctx context.Context, method, path string, body any, out errorCarrier, safe bool) error {
	if c == nil {
		return fmt.Errorf("tenant client not configured")
	}
	if c.cfg.BaseURL == "" {
		return fmt.Errorf("tenant service url missing")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	attempts := 1
	if safe {
		attempts += c.cfg.ReadRetries
	}

	call := func() error {
		var err error
		for i := 0; i < attempts; i++ {
			if i > 0 {
				select {
				case <-ctx.Done():
					return err
				case <-time.After(c.cfg.RetryDelay * time.Duration(i)):
				}
			}
			err = c.send(ctx, method, path, body, out)
			if err == nil || !temporary(err) {
				return err
			}
		}
		return err
	}

	if c.breaker == nil {
		return call()
	}
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, call()
	})
	return err
}

type errorCarrier interface {
	errorField() json.RawMessage
}

func (e *envelope[T]) errorField() json.RawMessage { return e.Error }

func (c *Client) send(ctx context.Context, method, path string, body any, out errorCarrier) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if cid := correlation.ExtractCorrelationID(ctx); cid != "" {
		req.Header.Set(correlation.HeaderName, cid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		var probe envelope[json.RawMessage]
		if json.Unmarshal(raw, &probe) == nil {
			if text := errorText(probe.Error); text != "" {
				msg = text
			}
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &StatusError{Status: resp.StatusCode, Message: msg}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if text := errorText(out.errorField()); text != "" {
		return &StatusError{Status: resp.StatusCode, Message: text}
	}
	return nil
}

func temporary(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 500 || se.Status == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

func errorText(field json.RawMessage) string {
	trimmed := bytes.TrimSpace(field)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("false")) {
		return ""
	}
	var s string
	if json.Unmarshal(trimmed, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(trimmed, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return string(trimmed)
}
