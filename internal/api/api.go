package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds every fleet/token API call.
	DefaultTimeout = 30 * time.Second
	// KeyFetchTimeout bounds the hosted public-key check.
	KeyFetchTimeout = 10 * time.Second

	maxResponseBodyBytes = 1 << 20
	maxReasonBytes       = 800
)

// Error is returned for every non-2xx vendor response. Reason is a
// best-effort extraction: a structured error field when the body has one,
// otherwise the truncated raw body.
type Error struct {
	Status int
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Reason)
}

// Client wraps an http.Client with a fixed timeout. No retries happen at
// this layer.
type Client struct {
	http *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// PostForm sends a form-urlencoded POST and decodes the JSON response.
func (c *Client) PostForm(ctx context.Context, rawUrl string, form url.Values) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawUrl, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// PostJSON sends a bearer-authenticated JSON POST and decodes the JSON
// response.
func (c *Client) PostJSON(ctx context.Context, rawUrl string, bearer string, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawUrl, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	return c.do(req)
}

// GetJSON sends a bearer-authenticated GET and decodes the JSON response.
func (c *Client) GetJSON(ctx context.Context, rawUrl string, bearer string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawUrl, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (map[string]any, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to do request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	data := map[string]any{}
	if len(raw) > 0 {
		// tolerate non-JSON bodies; the raw text still feeds the reason.
		// UseNumber keeps large integer ids intact.
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		_ = dec.Decode(&data)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return data, &Error{Status: res.StatusCode, Reason: extractReason(data, raw)}
	}
	return data, nil
}

func extractReason(data map[string]any, raw []byte) string {
	for _, key := range []string{"error_description", "error", "message"} {
		if s, ok := data[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	reason := strings.TrimSpace(string(raw))
	if len(reason) > maxReasonBytes {
		reason = reason[:maxReasonBytes]
	}
	return reason
}
