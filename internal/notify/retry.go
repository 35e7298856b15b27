// Retry policy adapted from the teacher's internal/services/crawler/retry.go,
// narrowed to spec §4.8's exact contract: 1s/2s/4s exponential backoff, max 3
// attempts, ±25% jitter, 429 treated as transient, other 4xx permanent.
package notify

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"

	"github.com/ternarybob/arbor"
)

type retryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
}

func newRetryPolicy() retryPolicy {
	return retryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		Multiplier:     2.0,
	}
}

func (p retryPolicy) isTransientStatus(statusCode int) bool {
	if statusCode == 429 {
		return true
	}
	return statusCode >= 500
}

func (p retryPolicy) shouldRetry(attempt int, statusCode int, err error) bool {
	if attempt >= p.MaxAttempts-1 {
		return false
	}
	if statusCode > 0 {
		return p.isTransientStatus(statusCode)
	}
	return isRetryableError(err)
}

func (p retryPolicy) backoff(attempt int) time.Duration {
	base := float64(p.InitialBackoff) * pow(p.Multiplier, float64(attempt))
	jitter := base * 0.25 * (rand.Float64()*2 - 1)
	d := base + jitter
	if d < 0 {
		d = float64(p.InitialBackoff)
	}
	return time.Duration(d)
}

// execute runs fn (one HTTP attempt returning its status code and error),
// retrying transient failures per the policy and stopping immediately on a
// permanent one.
func (p retryPolicy) execute(ctx context.Context, logger arbor.ILogger, fn func() (int, error)) (int, error) {
	var statusCode int
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		statusCode, lastErr = fn()

		if lastErr == nil && !p.isTransientStatus(statusCode) {
			return statusCode, nil
		}
		if !p.shouldRetry(attempt, statusCode, lastErr) {
			return statusCode, lastErr
		}

		backoff := p.backoff(attempt)
		if logger != nil {
			logger.Debug().Int("attempt", attempt+1).Int("status_code", statusCode).Err(lastErr).Dur("backoff", backoff).Msg("retrying webhook delivery")
		}
		select {
		case <-ctx.Done():
			return statusCode, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return statusCode, lastErr
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return false
}

func pow(base, exp float64) float64 {
	result := 1.0
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	return result
}
