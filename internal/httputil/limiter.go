// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces outbound requests so that no two start less than MinDelay
// apart. One Limiter is built per process and shared by every component that
// talks to the same index; it is safe for concurrent use.
type Limiter struct {
	limiter  *rate.Limiter
	minDelay time.Duration
}

// NewLimiter returns a limiter allowing one request per minDelay with no
// burst. A non-positive minDelay disables pacing.
func NewLimiter(minDelay time.Duration) *Limiter {
	if minDelay <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{
		limiter:  rate.NewLimiter(rate.Every(minDelay), 1),
		minDelay: minDelay,
	}
}

// Wait blocks until the next request may start or ctx is done. A nil
// Limiter never blocks.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// MinDelay returns the configured spacing.
func (l *Limiter) MinDelay() time.Duration {
	if l == nil {
		return 0
	}
	return l.minDelay
}
