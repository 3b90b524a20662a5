package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/httputil"
	"github.com/matzehuels/devscout/pkg/observability"
)

// Client provides shared HTTP functionality for registry and profile API
// clients: default headers, status mapping and request hooks. It never
// retries; callers decide whether a failure is worth repeating.
type Client struct {
	http    *http.Client
	headers map[string]string
	now     func() time.Time
}

// NewClient creates a Client with default headers applied to every request.
// Pass nil for headers if no default headers are needed.
func NewClient(headers map[string]string) *Client {
	return &Client{
		http:    httputil.NewClient(httputil.DefaultTimeout),
		headers: headers,
		now:     time.Now,
	}
}

// WithHTTPClient replaces the underlying http.Client. Used by tests to point
// at an httptest server.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	body, err := c.doRequest(ctx, url, headers)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return &errs.RegistryError{URL: url, Cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		return nil, &errs.RegistryError{URL: url, Cause: fmt.Errorf("%w: %w", ErrNetwork, err)}
	}
	hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if err := c.checkStatus(resp, url); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// checkStatus maps an HTTP response to the error taxonomy: 403 and 429 are
// *errors.RateLimitError and every other non-200 status is
// *errors.RegistryError. A 404 also matches ErrNotFound.
func (c *Client) checkStatus(resp *http.Response, url string) error {
	switch code := resp.StatusCode; code {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return &errs.RegistryError{Status: code, URL: url, Cause: ErrNotFound}
	case http.StatusForbidden, http.StatusTooManyRequests:
		return &errs.RateLimitError{
			Status:     code,
			RetryAfter: c.retryAfter(resp.Header),
			Message:    readMessage(resp.Body),
		}
	default:
		return &errs.RegistryError{Status: code, URL: url}
	}
}

// retryAfter reads Retry-After (seconds), falling back to GitHub's
// X-RateLimit-Reset epoch when the remaining quota is zero.
func (c *Client) retryAfter(h http.Header) int {
	if s := h.Get("Retry-After"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	if h.Get("X-RateLimit-Remaining") != "0" {
		return 0
	}
	reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return 0
	}
	if d := time.Unix(reset, 0).Sub(c.now()); d > 0 {
		return int(d.Seconds())
	}
	return 0
}

// readMessage extracts the "message" field GitHub puts in error bodies.
func readMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(body, 4096)).Decode(&payload)
	return payload.Message
}
