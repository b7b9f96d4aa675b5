// Package upstream provides an authenticated JSON REST client shared by the
// identity and authorization gateways. It injects machine tokens from a
// token cache, applies a uniform status mapping (404 is a valid negative
// lookup, 204 a bare success) and records per-call metrics.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/loginlab/loginlab/pkg/observability"
	"github.com/loginlab/loginlab/pkg/tokencache"
)

// Error is a non-2xx response from an external API
type Error struct {
	API     string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.API, e.Status, e.Message)
}

// AsError unwraps an *Error from err, if present
func AsError(err error) (*Error, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// Client performs authenticated JSON calls against one external API
type Client struct {
	api     string
	baseURL string
	tokens  *tokencache.Cache
	http    *http.Client
	metrics *observability.Metrics
}

// NewClient creates a client for the named API rooted at baseURL. A nil
// httpClient gets a traced default with a 10s timeout.
func NewClient(api, baseURL string, tokens *tokencache.Cache, httpClient *http.Client, metrics *observability.Metrics) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		api:     api,
		baseURL: baseURL,
		tokens:  tokens,
		http:    httpClient,
		metrics: metrics,
	}
}

// Response is a raw upstream HTTP response
type Response struct {
	Status int
	Body   []byte
}

// OK reports whether the status is 2xx
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Do performs one authenticated request and returns whatever the upstream
// answered, success or not. Only transport and token failures are errors;
// callers that need the raw status (the tuple writer's 400 handling) use
// this directly, everything else goes through DoJSON.
func (c *Client) Do(ctx context.Context, operation, method, path string, body interface{}) (*Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ObserveUpstreamRequest(c.api, operation, 0, time.Since(start))
		}
		return nil, fmt.Errorf("%s call to %s failed: %w", operation, c.api, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if c.metrics != nil {
		c.metrics.ObserveUpstreamRequest(c.api, operation, resp.StatusCode, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response from %s: %w", operation, c.api, err)
	}

	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"api":       c.api,
		"operation": operation,
		"status":    resp.StatusCode,
	}).Debug("upstream call")

	return &Response{Status: resp.StatusCode, Body: data}, nil
}

// DoJSON performs an authenticated request with lookup-friendly status
// mapping: 404 returns found=false with no error, 204 is a bare success,
// any other non-2xx becomes an *Error carrying the upstream message, and a
// 2xx body is decoded into out when out is non-nil.
func (c *Client) DoJSON(ctx context.Context, operation, method, path string, body, out interface{}) (bool, error) {
	resp, err := c.Do(ctx, operation, method, path, body)
	if err != nil {
		return false, err
	}

	switch {
	case resp.Status == http.StatusNotFound:
		return false, nil
	case resp.Status == http.StatusNoContent:
		return true, nil
	case !resp.OK():
		return false, c.ErrorFromResponse(resp)
	}

	if out != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return false, fmt.Errorf("failed to decode %s response from %s: %w", operation, c.api, err)
		}
	}
	return true, nil
}

// ErrorFromResponse builds an *Error from a non-2xx response, pulling the
// message out of the JSON body when one is there.
func (c *Client) ErrorFromResponse(resp *Response) error {
	return &Error{
		API:     c.api,
		Status:  resp.Status,
		Message: messageFromBody(resp.Body),
	}
}

// messageFromBody extracts a human-readable message from an upstream error
// body. Auth0 uses "message", FGA uses "message" with a "code", our own
// surface uses "error".
func messageFromBody(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if len(body) > 256 {
		body = body[:256]
	}
	return string(body)
}
