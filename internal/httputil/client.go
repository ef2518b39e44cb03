// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paperwatch/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "paperwatch/0.1"
)

// Client issues GET requests through a shared Limiter with retries.
type Client struct {
	http      *http.Client
	limiter   *Limiter
	policy    RetryPolicy
	userAgent string
	log       zerolog.Logger
}

// NewClient builds a Client from fetch settings. The limiter is shared by
// reference; pass the same one to every Client talking to the same index.
func NewClient(cfg types.FetchConfig, limiter *Limiter, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	c := &Client{
		http:      &http.Client{Timeout: timeout},
		limiter:   limiter,
		userAgent: ua,
		log:       log,
	}
	c.policy = RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
		OnRetry: func(attempt int, delay time.Duration, cause error) {
			c.log.Warn().Err(cause).Int("attempt", attempt).Dur("backoff", delay).Msg("request failed, retrying")
		},
	}
	return c
}

// Limiter returns the shared limiter.
func (c *Client) Limiter() *Limiter { return c.limiter }

// Get issues a paced, retried GET and returns the response when the status is
// 2xx. The caller must close the body.
func (c *Client) Get(ctx context.Context, url, accept string) (*http.Response, error) {
	return c.get(ctx, url, accept, c.policy)
}

// GetBody issues a GET and returns at most limit bytes of the body. When
// transient is non-nil, a 2xx body for which it returns true is retried like
// a 503.
func (c *Client) GetBody(ctx context.Context, url string, limit int64, transient func([]byte) bool) ([]byte, error) {
	policy := c.policy
	var body []byte
	policy.RetryIf = func(resp *http.Response) bool {
		data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
		resp.Body.Close()
		body = data
		resp.Body = io.NopCloser(bytes.NewReader(data))
		if err != nil {
			return true
		}
		return transient != nil && transient(data)
	}

	resp, err := c.get(ctx, url, "", policy)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	return body, nil
}

func (c *Client) get(ctx context.Context, url, accept string, policy RetryPolicy) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := DoWithRetry(ctx, c.http, c.limiter, req, policy)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drain(resp)
		return nil, fmt.Errorf("%w: %w", types.ErrNetwork, &StatusError{StatusCode: resp.StatusCode, URL: url})
	}
	return resp, nil
}
