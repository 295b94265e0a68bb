package db

import (
	"sync"
	"time"
)

// BreakerState represents the state of a circuit breaker.
type BreakerState int

const (
	// BreakerClosed means the database is healthy; calls flow through.
	BreakerClosed BreakerState = iota
	// BreakerOpen means the breaker has tripped; Acquire fails fast.
	BreakerOpen
	// BreakerHalfOpen means one trial request is allowed to test recovery.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	}
	return "closed"
}

// Breaker guards connection acquisition:
// Closed → Open (after failureThreshold consecutive connection failures)
// Open → HalfOpen (after resetTimeout elapses)
// HalfOpen → Closed on the first success, or back to Open on failure.
type Breaker struct {
	mu sync.Mutex

	state            BreakerState
	failureThreshold int
	resetTimeout     time.Duration

	consecutiveFailures int
	probing             bool
	lastFailureTime     time.Time
	now                 func() time.Time
}

// NewBreaker creates a breaker with the given parameters.
func NewBreaker(failureThreshold int, resetTimeout time.Duration) *Breaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &Breaker{
		state:            BreakerClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// Allow reports whether a connection attempt may proceed. In the Open state
// it moves to HalfOpen once the reset timeout has elapsed and lets a single
// trial request through.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.lastFailureTime) >= b.resetTimeout {
			b.state = BreakerHalfOpen
			b.probing = true
			return true
		}
		return false
	case BreakerHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return true
}

// RecordSuccess closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.probing = false
	b.state = BreakerClosed
}

// RecordFailure counts a connection failure. A failed trial re-opens the
// breaker immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	b.lastFailureTime = b.now()

	switch b.state {
	case BreakerClosed:
		if b.consecutiveFailures >= b.failureThreshold {
			b.state = BreakerOpen
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.probing = false
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
