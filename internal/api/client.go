// Package api is the HTTP+JSON client for the dating backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
	"github.com/meetsmatch/swipeclient/internal/telemetry"
)

const (
	defaultTimeout = 30 * time.Second
	// Upper bound on a response body; large profile payloads carry inline photos.
	maxResponseBytes = 10 << 20
)

// TokenSource supplies the bearer token for each request. An empty token
// sends the request unauthenticated.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource with a fixed value.
type StaticToken string

// Token implements TokenSource
func (s StaticToken) Token() string { return string(s) }

// Client talks to the backend REST API.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func(error)
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUnauthorizedHandler registers fn to run whenever the backend answers 401.
// The session layer uses it to drop credentials.
func WithUnauthorizedHandler(fn func(error)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: telemetry.InstrumentHTTPTransport(nil),
		},
		tokens: StaticToken(""),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do sends one request and decodes a 2xx JSON body into out (if non-nil).
// Transport failures become retryable network errors; non-2xx responses are
// mapped by status code.
func (c *Client) do(ctx context.Context, method, path, operation string, body, out interface{}) error {
	logger := telemetry.GetContextualLogger(ctx).WithFields(map[string]interface{}{
		"operation": operation,
		"method":    method,
		"path":      path,
	})

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.NewInternalError("failed to encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return apperrors.NewInternalError("failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if correlationID := telemetry.GetCorrelationID(ctx); correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		logger.WithError(err).Warn("Backend request failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.NewTimeoutError(operation, c.httpClient.Timeout)
		}
		return apperrors.NewNetworkError(operation, err).
			WithCorrelationID(telemetry.GetCorrelationID(ctx))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperrors.NewNetworkError(operation, err)
	}

	logger = logger.WithFields(map[string]interface{}{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		appErr := apperrors.FromHTTPStatus(operation, resp.StatusCode, errorMessage(data)).
			WithCorrelationID(telemetry.GetCorrelationID(ctx))
		logger.WithError(appErr).Warn("Backend rejected request")
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(appErr)
		}
		return appErr
	}

	logger.Debug("Backend request completed")

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewAppErrorWithCause(apperrors.ErrorTypeServer, "INVALID_RESPONSE",
			"backend returned an unreadable body", err).
			WithMetadata("operation", operation)
	}
	return nil
}

func errorMessage(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if er.Error != "" {
			return er.Error
		}
		return er.Message
	}
	return ""
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
