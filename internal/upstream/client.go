// Package upstream provides the HTTP transport shared by all vendor
// clients: JSON requests with a per-attempt timeout, exponential-backoff
// retries for transient failures, request correlation IDs, and per-vendor
// request duration observations.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zgpcy/status-exporter/internal/logger"
)

// Retry constants for upstream API calls
const (
	// DefaultTimeout bounds a single request attempt when the config does
	// not say otherwise.
	DefaultTimeout = 10 * time.Second

	// InitialRetryInterval is the initial backoff interval for retries
	InitialRetryInterval = 1 * time.Second

	// MaxRetryInterval is the maximum backoff interval between retries
	MaxRetryInterval = 10 * time.Second

	// MaxRetryElapsedTime is the maximum time to spend retrying one request
	MaxRetryElapsedTime = 30 * time.Second
)

// maxErrorBodyBytes caps how much of an error response body ends up in a
// StatusError.
const maxErrorBodyBytes = 512

// Config describes one vendor transport.
type Config struct {
	// Vendor names the upstream in logs, errors and metrics.
	Vendor string

	// BaseURL is prefixed to relative request paths. May be empty for
	// clients that only issue absolute-URL requests.
	BaseURL string

	// Timeout bounds each request attempt. Zero means DefaultTimeout.
	Timeout time.Duration

	// Authorize, if set, attaches credentials to an outgoing request. It
	// may itself perform network calls (token refreshes); errors it returns
	// keep their transient or permanent classification.
	Authorize func(ctx context.Context, req *http.Request) error

	// Duration observes each request attempt's duration in seconds.
	// Optional.
	Duration prometheus.Observer

	// Logger is required.
	Logger *logger.Logger
}

// Client issues JSON requests against one vendor API.
type Client struct {
	vendor    string
	base      string
	timeout   time.Duration
	authorize func(ctx context.Context, req *http.Request) error
	duration  prometheus.Observer
	log       *logger.Logger
	http      *http.Client
}

// NewClient creates a vendor transport.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		vendor:    cfg.Vendor,
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		timeout:   timeout,
		authorize: cfg.Authorize,
		duration:  cfg.Duration,
		log:       cfg.Logger,
		http:      &http.Client{},
	}
}

// GetJSON issues a GET against a path under the base URL and decodes the
// JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.retryJSON(ctx, http.MethodGet, c.base+path, "", "", out)
}

// PostJSON posts a raw body to an absolute URL and decodes the JSON
// response into out. Used by auth endpoints living outside the API prefix.
func (c *Client) PostJSON(ctx context.Context, url, contentType, body string, out any) error {
	return c.retryJSON(ctx, http.MethodPost, url, contentType, body, out)
}

// retryJSON runs one logical request with exponential backoff. Transient
// failures are retried until the backoff budget runs out; status and decode
// errors abort immediately.
func (c *Client) retryJSON(ctx context.Context, method, url, contentType, body string, out any) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = InitialRetryInterval
	bo.MaxInterval = MaxRetryInterval
	bo.MaxElapsedTime = MaxRetryElapsedTime

	operation := func() error {
		err := c.doJSON(ctx, method, url, contentType, body, out)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		c.log.Debug("Request failed, will retry",
			"vendor", c.vendor,
			"method", method,
			"url", url,
			"error", err)
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}

// doJSON performs a single request attempt.
func (c *Client) doJSON(ctx context.Context, method, url, contentType, body string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%s: building %s %s: %w", c.vendor, method, url, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	if c.authorize != nil {
		if err := c.authorize(ctx, req); err != nil {
			return fmt.Errorf("%s: authorize: %w", c.vendor, err)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if c.duration != nil {
		c.duration.Observe(elapsed.Seconds())
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("Request complete",
		"vendor", c.vendor,
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
		"request_id", requestID)

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &StatusError{
			Vendor:     c.vendor,
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding %s %s response: %w", c.vendor, method, url, err)
	}
	return nil
}
