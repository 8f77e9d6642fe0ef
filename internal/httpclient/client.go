// Package httpclient provides the outbound HTTP client used for webhook
// delivery, with rate limiting and backoff driven by the same retry policy
// the queue applies between job attempts.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/streampulse/job-service/internal/jobqueue"
)

const defaultUserAgent = "StreamPulse-JobService/1.0"

// Config holds outbound HTTP client configuration
type Config struct {
	RequestsPerSecond float64
	BurstSize         int
	Timeout           time.Duration
	UserAgent         string
}

// DefaultConfig returns the default outbound client configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 2,
		BurstSize:         4,
		Timeout:           30 * time.Second,
		UserAgent:         defaultUserAgent,
	}
}

// RetryError is returned when all delivery attempts are exhausted
type RetryError struct {
	URL        string
	Attempts   int
	LastStatus int
	LastErr    error
}

func (e *RetryError) Error() string {
	msg := fmt.Sprintf("failed to deliver to %s after %d attempts", e.URL, e.Attempts)
	if e.LastStatus != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.LastStatus)
	}
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e *RetryError) Unwrap() error { return e.LastErr }

// IsRetryableStatus checks if an HTTP status code is retryable.
// Retryable: 429, 500-599
func IsRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status < 600)
}

// Client is an HTTP client with rate limiting and policy-driven retries
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	policy     *jobqueue.Policy
	userAgent  string
}

// New creates a client whose in-call retries follow the given backoff policy
func New(cfg Config, policy *jobqueue.Policy) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultConfig().RequestsPerSecond
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = DefaultConfig().BurstSize
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		policy:     policy,
		userAgent:  cfg.UserAgent,
	}
}

// Post delivers a JSON payload with the given extra headers
func (c *Client) Post(ctx context.Context, url string, body []byte, headers map[string]string) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, url, body, headers)
}

// Do performs an HTTP request, retrying transient failures with the
// policy's backoff. A Retry-After header on a 429 overrides the computed
// delay.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastStatus int
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "*/*")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if !c.policy.ShouldRetry(attempt) {
				return nil, &RetryError{URL: url, Attempts: attempt, LastStatus: lastStatus, LastErr: lastErr}
			}
			if err := c.sleep(ctx, c.policy.Delay(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		lastStatus = resp.StatusCode
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		resp.Body.Close()
		if !IsRetryableStatus(resp.StatusCode) || !c.policy.ShouldRetry(attempt) {
			return nil, &RetryError{URL: url, Attempts: attempt, LastStatus: resp.StatusCode}
		}

		delay := c.policy.Delay(attempt)
		if resp.StatusCode == http.StatusTooManyRequests {
			if after := retryAfter(resp); after > 0 {
				delay = after
			}
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// GetBytes performs a GET request and returns the response body
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
