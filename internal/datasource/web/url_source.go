// Package web implements an HTTP data source with retry and exponential
// backoff. Public retail datasets are frequently served from flaky mirrors,
// so transient failures (network errors, 429, 5xx) are retried before the
// pipeline gives up on a run.
package web

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// URL is a data source that fetches one document over HTTP GET.
type URL struct {
	client         *http.Client
	url            string
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Option customizes a URL source.
type Option func(*URL)

// WithRetries sets the number of retry attempts after the initial request.
func WithRetries(n int) Option {
	return func(u *URL) {
		if n >= 0 {
			u.maxRetries = n
		}
	}
}

// WithBackoff sets the initial and maximum backoff between attempts.
func WithBackoff(initial, max time.Duration) Option {
	return func(u *URL) {
		if initial > 0 {
			u.initialBackoff = initial
		}
		if max > 0 {
			u.maxBackoff = max
		}
	}
}

// WithHTTPClient injects a custom client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(u *URL) { u.client = c }
}

// NewURL constructs a source for the given URL.
func NewURL(rawURL string, opts ...Option) *URL {
	u := &URL{
		client:         &http.Client{Timeout: 60 * time.Second},
		url:            rawURL,
		maxRetries:     3,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Open fetches the document and returns its body stream. Transport errors,
// 429, and 5xx responses are retried with exponential backoff; any other
// status is final. The caller owns closing the returned reader.
func (u *URL) Open(ctx context.Context) (io.ReadCloser, error) {
	if u.url == "" {
		return nil, fmt.Errorf("web: url must not be empty")
	}

	attempts := u.maxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
		if err != nil {
			return nil, fmt.Errorf("web: build request: %w", err)
		}

		resp, err := u.client.Do(req)
		switch {
		case err != nil:
			// Transport-level failure: retryable.
			lastErr = err
		case resp.StatusCode == http.StatusOK:
			return resp.Body, nil
		case retryableStatus(resp.StatusCode):
			resp.Body.Close()
			lastErr = fmt.Errorf("web: retryable status %d from %s", resp.StatusCode, u.url)
		default:
			resp.Body.Close()
			return nil, fmt.Errorf("web: fetch %s: status %d", u.url, resp.StatusCode)
		}

		if attempt+1 >= attempts {
			break
		}
		backoff := backoffDuration(u.initialBackoff, attempt, u.maxBackoff)
		log.Printf("web: url=%s attempt=%d backoff=%s err=%v", u.url, attempt+1, backoff, lastErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("web: fetch %s after %d attempts: %w", u.url, attempts, lastErr)
}

// retryableStatus is intentionally conservative: 5xx and 429 are transient,
// everything else is final.
func retryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// backoffDuration doubles the initial backoff per retry, clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	d := initial << attempt
	if d > max || d <= 0 {
		return max
	}
	return d
}
