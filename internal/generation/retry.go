package generation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how provider calls are retried.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// normalized replaces out-of-range values with the defaults.
func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 2 * time.Second
	}
	return p
}

// Retry calls fn until it succeeds, returns an error that IsRetryable rejects,
// or the policy runs out of attempts. Delays grow exponentially with jitter:
// delay = base * 2^attempt * (0.5 + rand(0, 0.5)).
func Retry(ctx context.Context, logger *slog.Logger, policy RetryPolicy, fn func(context.Context) error) error {
	policy = policy.normalized()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.InfoContext(ctx, "generator call succeeded after retry",
					slog.Int("attempt", attemptNum))
			}
			return nil
		}

		if !IsRetryable(err) {
			logger.WarnContext(ctx, "permanent generator error, not retrying",
				slog.Int("attempt", attemptNum),
				slog.String("error", err.Error()))
			return err
		}

		if attempt >= policy.MaxRetries {
			logger.WarnContext(ctx, "maximum retry attempts reached",
				slog.Int("max_retries", policy.MaxRetries),
				slog.String("error", err.Error()))
			return fmt.Errorf("exceeded maximum retry attempts (%d): %w", policy.MaxRetries, err)
		}

		backoff := float64(policy.BaseDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5))

		logger.InfoContext(ctx, "retrying generator call after delay",
			slog.Int("attempt", attemptNum),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
		}
	}
}
