package apiclient

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jmcleod/focusflow/apperr"
)

// retryable reports whether the client retries a failure: transport
// failures with no response, and any 5xx. 4xx responses never retry.
func retryable(e *apperr.AppError) bool {
	if e == nil {
		return false
	}
	if e.StatusCode >= 500 {
		return true
	}
	return e.StatusCode == 0 && (e.Kind == apperr.KindNetwork || e.Kind == apperr.KindTimeout)
}

// linearBackoff waits delay*n after the n-th failed attempt and stops once
// attempts have been made.
func (c *Client) linearBackoff(attempts int) retry.Backoff {
	failed := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		failed++
		if failed >= attempts {
			return 0, true
		}
		d := c.delay * time.Duration(failed)
		if c.onBackoff != nil {
			c.onBackoff(failed, d)
		}
		return d, false
	})
}

func (c *Client) withRetry(ctx context.Context, attempts int, fn func(ctx context.Context, attempt int) *apperr.AppError) error {
	attempt := 0
	return retry.Do(ctx, c.linearBackoff(attempts), func(ctx context.Context) error {
		attempt++
		ae := fn(ctx, attempt)
		if ae == nil {
			return nil
		}
		if ctx.Err() != nil || !retryable(ae) {
			return ae
		}
		if attempt < attempts {
			c.logger.Warn("retrying request",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", attempts),
				slog.String("kind", ae.Kind.String()),
				slog.Int("status", ae.StatusCode))
		}
		return retry.RetryableError(ae)
	})
}
