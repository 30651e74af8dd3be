package llm

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures the retry behavior for provider calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for LLM API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// withRetry executes fn with exponential backoff, retrying only failures
// classified as transient. Each attempt waits on the rate limiter so retries
// count against the same request budget as first calls.
func (g *Gateway) withRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	delay := g.retryConfig.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= g.retryConfig.MaxRetries; attempt++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return newModelError(KindTimeout, fmt.Errorf("rate limit wait: %w", err))
			}
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				g.logger.Debug("provider call recovered",
					"attempts", attempt+1,
					"elapsed", time.Since(start),
				)
			}
			return nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		if attempt == g.retryConfig.MaxRetries {
			break
		}

		g.logger.Debug("retrying provider call",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return newModelError(KindTimeout, fmt.Errorf("context canceled during retry: %w", ctx.Err()))
		case <-time.After(delay):
			delay = min(delay*2, g.retryConfig.MaxInterval)
		}
	}

	return fmt.Errorf("provider call after %d retries (elapsed: %v): %w",
		g.retryConfig.MaxRetries, time.Since(start), lastErr)
}
