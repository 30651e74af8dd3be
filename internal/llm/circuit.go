package llm

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the gateway is refusing provider calls
// after a run of failures.
var ErrCircuitOpen = errors.New("model gateway circuit is open")

// BreakerConfig tunes the gateway's failure circuit. Zero values fall back
// to the defaults noted on each field.
type BreakerConfig struct {
	// FailureThreshold is the run of consecutive failures that opens the
	// circuit (default 5).
	FailureThreshold int

	// SuccessThreshold is the run of probe successes that closes the
	// circuit again (default 2).
	SuccessThreshold int

	// CoolOff is how long the circuit stays open before probe requests
	// are let through (default 30s).
	CoolOff time.Duration
}

// breaker refuses provider calls for a cool-off period after a run of
// consecutive failures, then lets probe requests through until enough of
// them succeed.
type breaker struct {
	cfg BreakerConfig

	mu        sync.Mutex
	failures  int
	successes int
	openUntil time.Time // zero while the circuit is closed
	probing   bool
}

func newBreaker(cfg BreakerConfig) *breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.CoolOff <= 0 {
		cfg.CoolOff = 30 * time.Second
	}
	return &breaker{cfg: cfg}
}

// allow reports whether a provider call may proceed. The first call after
// the cool-off elapses flips the breaker into probing.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.openUntil.IsZero() || b.probing {
		return nil
	}
	if time.Now().Before(b.openUntil) {
		return ErrCircuitOpen
	}
	b.probing = true
	b.successes = 0
	return nil
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.probing {
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.failures = 0
			b.successes = 0
			b.openUntil = time.Time{}
			b.probing = false
		}
		return
	}
	b.failures = 0
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.probing {
		// A failed probe reopens the circuit for a fresh cool-off.
		b.probing = false
		b.successes = 0
		b.openUntil = time.Now().Add(b.cfg.CoolOff)
		return
	}

	b.failures++
	if b.failures >= b.cfg.FailureThreshold && b.openUntil.IsZero() {
		b.openUntil = time.Now().Add(b.cfg.CoolOff)
	}
}
