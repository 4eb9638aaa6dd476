// Package httpretry provides an HTTP client with exponential backoff and
// jitter, used for polling external threat feeds that rate-limit or flap.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// Client wraps an *http.Client with retry on transient failures.
type Client struct {
	inner      *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// New creates a retrying client. A nil inner client gets a 30s timeout
// default; maxRetries <= 0 means 3 attempts after the initial request.
func New(inner *http.Client, maxRetries int) *Client {
	if inner == nil {
		inner = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  time.Second,
		maxDelay:   30 * time.Second,
	}
}

// Do executes the request, retrying on 429/5xx and transport errors.
// 4xx client errors are returned immediately. The final response is
// returned as-is so the caller can inspect status and body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := req.Context().Err(); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: reset request body: %w", err)
				}
				req.Body = body
			}

			select {
			case <-time.After(c.delay(attempt)):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
		}

		resp, err := c.inner.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if !retryable(resp.StatusCode) || attempt == c.maxRetries {
			return resp, nil
		}

		// Drain and close so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: status %d from %s", resp.StatusCode, req.URL.Host)
	}

	return nil, lastErr
}

func (c *Client) delay(attempt int) time.Duration {
	d := time.Duration(float64(c.baseDelay) * math.Pow(2, float64(attempt-1)))
	if d > c.maxDelay {
		d = c.maxDelay
	}
	// Full jitter keeps feed hosts from seeing retry bursts in lockstep.
	return time.Duration(rand.Int63n(int64(d) + 1))
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
