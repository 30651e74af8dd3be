package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/nimbusflow/support-agent/internal/log"
)

func testGateway(retry RetryConfig) *Gateway {
	return &Gateway{
		logger:      log.NewNop(),
		retryConfig: retry,
		breaker:     newBreaker(BreakerConfig{}),
	}
}

func TestWithRetrySucceedsFirstAttempt(t *testing.T) {
	g := testGateway(RetryConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})

	calls := 0
	err := g.withRetry(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRecoversFromTransientFailure(t *testing.T) {
	g := testGateway(RetryConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})

	calls := 0
	err := g.withRetry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return newModelError(KindUnavailable, errors.New("connection refused"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryWaitsOnRateLimiter(t *testing.T) {
	g := testGateway(RetryConfig{MaxRetries: 0, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})
	g.limiter = rate.NewLimiter(rate.Every(50*time.Millisecond), 1)

	start := time.Now()
	for i := 0; i < 2; i++ {
		require.NoError(t, g.withRetry(context.Background(), func(context.Context) error {
			return nil
		}))
	}
	// The second call must wait for the limiter to refill.
	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

func TestWithRetryReportsLimiterWaitFailure(t *testing.T) {
	g := testGateway(RetryConfig{MaxRetries: 0, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})
	g.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	// Drain the burst so the next wait cannot complete before the deadline.
	require.NoError(t, g.withRetry(context.Background(), func(context.Context) error {
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	calls := 0
	err := g.withRetry(ctx, func(context.Context) error {
		calls++
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, KindTimeout, ErrorKindOf(err))
	assert.Zero(t, calls)
}

func TestWithRetryStopsOnNonRetryableError(t *testing.T) {
	g := testGateway(RetryConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})

	calls := 0
	err := g.withRetry(context.Background(), func(context.Context) error {
		calls++
		return newModelError(KindAuth, errors.New("invalid api key"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, KindAuth, ErrorKindOf(err))
}

func TestWithRetryExhaustsBudget(t *testing.T) {
	g := testGateway(RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})

	calls := 0
	err := g.withRetry(context.Background(), func(context.Context) error {
		calls++
		return newModelError(KindRateLimited, errors.New("429"))
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, KindRateLimited, ErrorKindOf(err))
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	g := testGateway(RetryConfig{MaxRetries: 5, InitialInterval: time.Hour, MaxInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := g.withRetry(ctx, func(context.Context) error {
		return newModelError(KindUnavailable, errors.New("down"))
	})

	require.Error(t, err)
	assert.Equal(t, KindTimeout, ErrorKindOf(err))
}

func TestModelErrorClassification(t *testing.T) {
	tests := []struct {
		kind      ErrorKind
		retryable bool
	}{
		{KindUnavailable, true},
		{KindRateLimited, true},
		{KindTimeout, true},
		{KindAuth, false},
		{KindInvalidResponse, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := newModelError(tt.kind, errors.New("boom"))
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, tt.kind, ErrorKindOf(err))
		})
	}
}

func TestIsRetryablePlainError(t *testing.T) {
	assert.False(t, IsRetryable(errors.New("not classified")))
}
