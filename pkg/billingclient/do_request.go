package billingclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/railzwaylabs/tier-orchestrator/pkg/telemetry/correlation"
)

type ResponseWrapper[T any] struct {
	Data  T               `json:"data"`
	Error json.RawMessage `json:"error,omitempty"`
}

// doRequest sends one logical request. safe marks requests that may be
// repeated without side effects; anything else is attempted exactly once.
func (c *Client) doRequest(ctx context.Context, method, url string, body interface{}, out interface{}, safe bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	return c.breaker.Execute(func() error {
		return c.retry.Do(ctx, safe, func() error {
			return c.send(ctx, method, url, body, out)
		})
	})
}

func (c *Client) send(ctx context.Context, method, url string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
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
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, raw []byte) error {
	apiErr := &APIError{Status: status, Message: strings.TrimSpace(string(raw))}

	var envelope struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil {
		apiErr.Code = envelope.Code
		switch {
		case envelope.Message != "":
			apiErr.Message = envelope.Message
		case len(envelope.Error) > 0:
			apiErr.Message = errorText(envelope.Error)
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// bodyError turns an "error" field on a 2xx body into an APIError.
func bodyError(status int, field json.RawMessage) error {
	text := errorText(field)
	if text == "" {
		return nil
	}
	return &APIError{Status: status, Message: text}
}

func errorText(field json.RawMessage) string {
	trimmed := bytes.TrimSpace(field)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
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
