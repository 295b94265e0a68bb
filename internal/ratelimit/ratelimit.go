// Package ratelimit enforces per-client token-bucket limits.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// tokenBucket is the limiter for a single client.
type tokenBucket struct {
	rate       float64 // tokens per second
	burst      int
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

func newTokenBucket(rate float64, burst int, now time.Time) *tokenBucket {
	return &tokenBucket{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastRefill: now,
	}
}

// allow consumes one token. When the bucket is empty it returns false and
// the wait until the next token.
func (tb *tokenBucket) allow(now time.Time) (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 {
		tb.tokens = math.Min(float64(tb.burst), tb.tokens+elapsed*tb.rate)
		tb.lastRefill = now
	}

	if tb.tokens < 1.0 {
		wait := time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
		return false, wait
	}
	tb.tokens -= 1.0
	return true, 0
}

// Limiter holds one bucket per client key. Buckets live in an LRU cache so
// memory stays bounded; an evicted client starts again with a full bucket.
type Limiter struct {
	rate    float64
	burst   int
	buckets *lru.Cache[string, *tokenBucket]
	mu      sync.Mutex
	now     func() time.Time
}

// New creates a limiter allowing rate requests per second with the given
// burst, tracking at most maxClients clients.
func New(rate float64, burst, maxClients int) (*Limiter, error) {
	if rate <= 0 || burst < 1 {
		return nil, fmt.Errorf("ratelimit: rate and burst must be positive")
	}
	buckets, err := lru.New[string, *tokenBucket](maxClients)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: create cache: %w", err)
	}
	return &Limiter{rate: rate, burst: burst, buckets: buckets, now: time.Now}, nil
}

// Allow consumes a token for key. When limited it returns false and how
// long the client should wait.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	return l.bucket(key, now).allow(now)
}

func (l *Limiter) bucket(key string, now time.Time) *tokenBucket {
	if b, ok := l.buckets.Get(key); ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets.Get(key); ok {
		return b
	}
	b := newTokenBucket(l.rate, l.burst, now)
	l.buckets.Add(key, b)
	return b
}

// tracked returns the number of clients holding a bucket.
func (l *Limiter) tracked() int {
	return l.buckets.Len()
}
