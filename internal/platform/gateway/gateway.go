// Package gateway is the HTTP client through which every resource store
// talks to the remote patient-center API. It attaches the bearer token,
// speaks JSON both ways, classifies failures into the error taxonomy the
// stores branch on, and invokes a hook whenever the server says the
// token is no longer welcome.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultBaseURL points at a local development backend, matching the
// deployment default of the web client.
const DefaultBaseURL = "http://localhost:8000"

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func statusIs(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// IsNotFound reports a 404: the resource endpoint (or record) does not
// exist server-side. Stores with a fallback treat this as recoverable.
func IsNotFound(err error) bool { return statusIs(err, http.StatusNotFound) }

// IsUnauthorized reports a 401.
func IsUnauthorized(err error) bool { return statusIs(err, http.StatusUnauthorized) }

// IsConflict reports a duplicate-resource rejection. The original
// backend answers wishlist duplicates with 400 "Item already in
// wishlist", so both 400 and 409 count.
func IsConflict(err error) bool {
	return statusIs(err, http.StatusConflict) || statusIs(err, http.StatusBadRequest)
}

// IsValidation reports a 422: the server rejected the payload shape.
func IsValidation(err error) bool { return statusIs(err, http.StatusUnprocessableEntity) }

// IsNetwork reports a transport-level failure (no HTTP response at all).
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return !errors.As(err, &apiErr)
}

// TokenSource supplies the current bearer token. It reports false when
// no token is available, in which case the request goes out anonymous.
type TokenSource func() (string, bool)

// Options configures a Client. Zero values get sensible defaults.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Tokens         TokenSource
	OnUnauthorized func()
	Logger         zerolog.Logger
	RateLimit      rate.Limit // requests per second; 0 disables limiting
	RateBurst      int
}

// Client is the concrete HttpGateway.
type Client struct {
	base           string
	http           *http.Client
	tokens         TokenSource
	onUnauthorized func()
	limiter        *rate.Limiter
	log            zerolog.Logger
}

// New builds a gateway client from opts.
func New(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(opts.RateLimit, burst)
	}
	return &Client{
		base:           base,
		http:           hc,
		tokens:         opts.Tokens,
		onUnauthorized: opts.OnUnauthorized,
		limiter:        limiter,
		log:            opts.Logger,
	}
}

// Get fetches path and decodes the JSON response into out (which may be
// nil to discard the body).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE and decodes any response body into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok, ok := c.tokens(); ok {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Str("method", method).Str("path", path).Err(err).Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("request")

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(data, resp.StatusCode)}
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

// errorMessage pulls a human-readable message out of an error body. The
// backend answers with {"detail": ...}; the mock server and some proxies
// use {"message": ...} or {"error": ...}.
func errorMessage(data []byte, status int) string {
	var body struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if s, ok := body.Detail.(string); ok && s != "" {
			return s
		}
		if body.Detail != nil {
			if s, err := json.Marshal(body.Detail); err == nil {
				return string(s)
			}
		}
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return http.StatusText(status)
}
