package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/config"
)

// maxResponseSize caps service response bodies. Risk services return small
// JSON documents; anything larger is a misbehaving endpoint.
const maxResponseSize = 4 * 1024 * 1024 // 4MB

// defaultRetryMax is the number of retries for transient service failures.
// Retries use retryablehttp's default exponential backoff.
const defaultRetryMax = 2

// clientConfig holds the knobs shared by all service clients.
type clientConfig struct {
	httpClient *http.Client
	timeout    time.Duration
	retryMax   int
	userAgent  string
}

// Option configures a service client.
type Option func(*clientConfig)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithRetryMax sets the number of retries for transient failures.
func WithRetryMax(n int) Option {
	return func(c *clientConfig) { c.retryMax = n }
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) { c.userAgent = ua }
}

// WithHTTPClient replaces the underlying HTTP client entirely, bypassing
// the retrying transport. Intended for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// newClientConfig applies options over defaults and builds the retrying
// HTTP client if none was injected.
//
// Design decision: clients hold a plain *http.Client produced by
// retryablehttp's StandardClient adapter rather than the retryablehttp
// client itself. Call sites stay ordinary net/http code, and tests can
// swap in httptest clients without knowing about the retry layer.
func newClientConfig(opts ...Option) *clientConfig {
	c := &clientConfig{
		timeout:   config.DefaultTimeout,
		retryMax:  defaultRetryMax,
		userAgent: config.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		rc := retryablehttp.NewClient()
		rc.RetryMax = c.retryMax
		rc.HTTPClient.Timeout = c.timeout
		rc.Logger = nil // retry chatter is noise; errors surface to the caller
		c.httpClient = rc.StandardClient()
	}
	return c
}

// postJSON sends a JSON payload and returns the response body.
// Non-2xx responses become ErrBadStatus with the code attached.
func (c *clientConfig) postJSON(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	return c.do(req)
}

// getJSON sends a GET request and returns the response body.
func (c *clientConfig) getJSON(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	return c.do(req)
}

func (c *clientConfig) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is not actionable

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}
	return body, nil
}
