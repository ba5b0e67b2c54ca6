// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Gemini client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotConfigured
	ErrTypeAuth
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeRateLimited
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrNotConfigured = errors.New("gemini API key not configured")
	ErrAuthFailed    = errors.New("authentication failed")
	ErrRateLimited   = errors.New("rate limited")
	ErrModelNotFound = errors.New("model not found")
	ErrTimeout       = errors.New("request timed out")
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	// DefaultBaseURL is the Google generative language endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultTimeout is the timeout for non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the retry budget for transient failures.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the backoff delay.
	retryMaxDelay = 10 * time.Second

	// maxResponseSize bounds non-streaming response bodies.
	maxResponseSize = 10 * 1024 * 1024

	// apiVersion is the API version path segment.
	apiVersion = "v1beta"
)

// ClientConfig holds configuration options for the Gemini client.
type ClientConfig struct {
	// APIKey authenticates against the API (x-goog-api-key header).
	APIKey string

	// BaseURL overrides the Google endpoint, e.g. to reach an API proxy.
	BaseURL string

	// Password is the access password expected by an API proxy; sent as
	// a bearer token when set. Ignored for the direct endpoint.
	Password string

	// Timeout for non-streaming requests.
	Timeout time.Duration

	// MaxRetries for transient failures (429, 5xx).
	MaxRetries int

	// RequestsPerMinute limits outbound request rate client-side.
	// Zero disables the limiter.
	RequestsPerMinute int
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Gemini API. It is safe for
// concurrent use.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	// streamClient has no timeout; streaming lifetime is governed by the
	// request context.
	streamClient *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a Gemini client. Zero-value config fields are filled
// with defaults.
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}

	var limiter *rate.Limiter
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), config.RequestsPerMinute)
	}

	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{},
		limiter:      limiter,
	}
}

// IsConfigured returns true if the client has an API key.
func (c *Client) IsConfigured() bool {
	return strings.TrimSpace(c.config.APIKey) != ""
}

// setHeaders sets authentication headers. The API key travels in
// x-goog-api-key; a proxy access password travels as a bearer token.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "gemchat/0.3.0")
	req.Header.Set("x-goog-api-key", c.config.APIKey)
	if c.config.Password != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Password)
	}
}

// logRequest logs an API request without sensitive data: method and
// path only, never headers or body.
func logRequest(req *http.Request) {
	log.Printf("gemini: %s %s", req.Method, req.URL.Path)
}

// logResponse logs status and duration, never the body.
func logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("gemini: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}

// wait blocks on the client-side rate limiter, if configured.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves available models. An empty result is not an
// error; callers fall back to DefaultModels.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if !c.IsConfigured() {
		return nil, &ClientError{Type: ErrTypeNotConfigured, Message: "cannot list models", Cause: ErrNotConfigured}
	}
	if err := c.wait(ctx); err != nil {
		return nil, &ClientError{Type: ErrTypeRateLimited, Message: "rate limiter wait failed", Cause: err}
	}

	url := c.config.BaseURL + "/" + apiVersion + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	c.setHeaders(req)
	logRequest(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ClientError{Type: ErrTypeTimeout, Message: "list models", Cause: ErrTimeout}
		}
		return nil, &ClientError{Type: ErrTypeConnection, Message: "list models request failed", Cause: err}
	}
	defer resp.Body.Close()
	logResponse(resp, time.Since(start))

	body, err := readBounded(resp.Body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp.StatusCode, body)
	}

	var result listModelsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode models response", Cause: err}
	}
	return result.Models, nil
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// errorFromResponse converts an HTTP error response into a ClientError
// wrapping the matching sentinel.
func (c *Client) errorFromResponse(statusCode int, body []byte) error {
	message := ""
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ClientError{Type: ErrTypeAuth, Message: orStatus(message, statusCode), Cause: ErrAuthFailed}
	case http.StatusNotFound:
		return &ClientError{Type: ErrTypeModelNotFound, Message: orStatus(message, statusCode), Cause: ErrModelNotFound}
	case http.StatusTooManyRequests:
		return &ClientError{Type: ErrTypeRateLimited, Message: orStatus(message, statusCode), Cause: ErrRateLimited}
	default:
		return &ClientError{Type: ErrTypeInvalidResponse, Message: orStatus(message, statusCode)}
	}
}

func orStatus(message string, statusCode int) string {
	if message != "" {
		return message
	}
	return fmt.Sprintf("unexpected status %d", statusCode)
}

// isRetryable determines if an error should trigger a retry: rate
// limiting and 5xx responses are, context cancellation is not.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var cerr *ClientError
	if errors.As(err, &cerr) {
		return cerr.Type == ErrTypeConnection || cerr.Type == ErrTypeUnknown ||
			(cerr.Type == ErrTypeInvalidResponse && strings.Contains(cerr.Message, "unexpected status 5"))
	}
	return false
}

// backoff returns the delay before retry attempt n (0-based):
// 500ms, 1s, 2s, capped at retryMaxDelay.
func backoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// readBounded reads a response body with a size limit.
func readBounded(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxResponseSize))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) == maxResponseSize {
		return nil, fmt.Errorf("response exceeded %d bytes", int64(maxResponseSize))
	}
	return body, nil
}

// drainAndClose discards any unread body so the connection can be
// reused.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}

// marshalRequest encodes a request body once so retries can reuse it.
func marshalRequest(req GenerateRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}
	return body, nil
}

// newPostRequest builds a POST with auth headers for the given endpoint.
func (c *Client) newPostRequest(ctx context.Context, url string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	c.setHeaders(req)
	return req, nil
}
