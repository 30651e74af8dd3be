package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := newBreaker(BreakerConfig{FailureThreshold: 3, CoolOff: time.Minute})

	b.failure()
	b.failure()
	assert.NoError(t, b.allow())

	b.failure()
	assert.ErrorIs(t, b.allow(), ErrCircuitOpen)
}

func TestBreakerSuccessResetsFailureRun(t *testing.T) {
	b := newBreaker(BreakerConfig{FailureThreshold: 2, CoolOff: time.Minute})

	b.failure()
	b.success()
	b.failure()
	assert.NoError(t, b.allow())
}

func TestBreakerClosesAfterSuccessfulProbes(t *testing.T) {
	b := newBreaker(BreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		CoolOff:          10 * time.Millisecond,
	})

	b.failure()
	b.failure()
	require.ErrorIs(t, b.allow(), ErrCircuitOpen)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.allow())

	b.success()
	b.success()

	// Fully closed again: one failure is below the threshold.
	b.failure()
	assert.NoError(t, b.allow())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := newBreaker(BreakerConfig{FailureThreshold: 2, CoolOff: 10 * time.Millisecond})

	b.failure()
	b.failure()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.allow())

	b.failure()
	assert.ErrorIs(t, b.allow(), ErrCircuitOpen)
}

func TestBreakerDefaults(t *testing.T) {
	b := newBreaker(BreakerConfig{})

	assert.Equal(t, 5, b.cfg.FailureThreshold)
	assert.Equal(t, 2, b.cfg.SuccessThreshold)
	assert.Equal(t, 30*time.Second, b.cfg.CoolOff)
}
