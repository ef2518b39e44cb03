// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the paced, retrying HTTP access shared by the
// search and acquisition stages.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pdiddy/paperwatch/pkg/types"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 2 * time.Second
	maxBackoff        = 2 * time.Minute
)

// RetryPolicy controls DoWithRetry.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt. Zero uses
	// the default (3); a negative value disables retries.
	MaxRetries int

	// BaseDelay is the first backoff delay; it doubles on each attempt.
	// A Retry-After header, when present, replaces the computed delay.
	BaseDelay time.Duration

	// RetryIf, when set, is consulted for 2xx responses. Returning true
	// treats the response as transient. It may replace resp.Body after
	// reading it.
	RetryIf func(resp *http.Response) bool

	// OnRetry is called before each backoff wait.
	OnRetry func(attempt int, delay time.Duration, cause error)
}

func (p RetryPolicy) retries() int {
	switch {
	case p.MaxRetries < 0:
		return 0
	case p.MaxRetries == 0:
		return defaultMaxRetries
	default:
		return p.MaxRetries
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	d := base << attempt
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// errTransientBody marks a 2xx response rejected by RetryPolicy.RetryIf.
var errTransientBody = errors.New("transient response body")

// DoWithRetry executes req, waiting on limiter before every attempt, and
// retries network errors, HTTP 429, HTTP 5xx, and responses rejected by
// policy.RetryIf with exponential backoff.
//
// Other non-2xx responses are returned to the caller unchanged. When the
// retries are exhausted the result is an error wrapping types.ErrNetwork and
// the last cause. If ctx is cancelled during a wait the function returns
// ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, limiter *Limiter, req *http.Request, policy RetryPolicy) (*http.Response, error) {
	maxRetries := policy.retries()

	for attempt := 0; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := client.Do(req.Clone(ctx))
		var (
			cause      error
			retryAfter time.Duration
		)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			cause = err
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			cause = &StatusError{StatusCode: resp.StatusCode, URL: req.URL.String()}
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			drain(resp)
		case resp.StatusCode < 300 && policy.RetryIf != nil && policy.RetryIf(resp):
			cause = errTransientBody
			drain(resp)
		default:
			return resp, nil
		}

		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: %s after %d attempt(s): %w", types.ErrNetwork, req.URL.Redacted(), attempt+1, cause)
		}

		delay := policy.backoff(attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt+1, delay, cause)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs > 0 {
			return min(time.Duration(secs)*time.Second, maxBackoff)
		}
		return 0
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return min(d, maxBackoff)
		}
	}
	return 0
}
