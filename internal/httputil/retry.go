// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides outbound HTTP helpers shared by the engine adapters.
package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// throttled responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// maxRetryAfter caps how long a server-provided Retry-After can hold a call.
const maxRetryAfter = 30 * time.Second

const defaultMaxRetries = 2

// NoRetry makes DoWithRetry return throttled responses immediately.
const NoRetry = -1

// retryable reports whether status signals a transient, throttled backend.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) and 503 (Service Unavailable). The wait is the server's
// Retry-After when present, otherwise RetryBaseDelay doubled per attempt.
//
// When maxRetries is 0 the default (2) is used; NoRetry disables retries.
// On each retry the response body is drained and closed before waiting. If
// the context ends during a wait the function returns ctx.Err(). After
// exhausting retries the last throttled response is returned so the caller
// can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, logger *zap.Logger) (*http.Response, error) {
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := retryAfter(resp.Header.Get("Retry-After"))
		if backoff <= 0 {
			backoff = time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		}
		logger.Debug("backend throttled, retrying",
			zap.String("host", req.URL.Host),
			zap.Int("status", resp.StatusCode),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP
// date. It returns 0 when the header is absent or unparseable.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = time.Until(t)
	}
	if d < 0 {
		return 0
	}
	return min(d, maxRetryAfter)
}

// StatusError reports a non-200 response from a backend.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.URL, e.StatusCode)
}

// GetJSON issues a GET with the given headers, retries throttled responses,
// and decodes a 200 response body into v. Any other status yields a
// *StatusError.
func GetJSON(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, maxRetries int, logger *zap.Logger, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, val := range headers {
		req.Header.Set(k, val)
	}

	resp, err := DoWithRetry(ctx, client, req, maxRetries, logger)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: req.URL.Scheme + "://" + req.URL.Host + req.URL.Path, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing response from %s: %w", req.URL.Host, err)
	}
	return nil
}
