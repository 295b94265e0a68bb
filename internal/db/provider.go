// Package db owns the connection pool and executes stored procedures.
package db

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"
)

// Handle is the pooled handle procedure calls run on. *sql.DB satisfies it.
type Handle interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PingContext(ctx context.Context) error
}

// Pool is a Handle the provider owns and closes.
type Pool interface {
	Handle
	Close() error
}

// Opener creates and verifies a pool. It is called with a context bounded
// by the connect timeout.
type Opener func(ctx context.Context) (Pool, error)

// ProviderConfig tunes a Provider.
type ProviderConfig struct {
	ConnectTimeout time.Duration
	// Breaker guards connection attempts; nil disables it.
	Breaker *Breaker
	// Secrets are scrubbed from connection error messages.
	Secrets []string
}

// Provider lazily opens a single shared pool on first use and hands it out
// to every caller. A failed open is not cached.
type Provider struct {
	open Opener
	cfg  ProviderConfig

	mu     sync.Mutex
	pool   atomic.Pointer[poolBox]
	closed atomic.Bool
}

type poolBox struct{ p Pool }

// NewProvider creates a provider that opens its pool with open.
func NewProvider(open Opener, cfg ProviderConfig) *Provider {
	return &Provider{open: open, cfg: cfg}
}

// Acquire returns the shared pool, opening it if needed. Concurrent first
// calls open exactly once. Failures are returned as *ConnectionError.
// Callers that go on to use the handle report the outcome with
// ReportSuccess or ReportFailure so a half-open breaker can settle.
func (p *Provider) Acquire(ctx context.Context) (Handle, error) {
	if p.closed.Load() {
		return nil, &ConnectionError{Err: ErrClosed, msg: ErrClosed.Error()}
	}
	if b := p.cfg.Breaker; b != nil && !b.Allow() {
		return nil, &ConnectionError{Err: ErrBreakerOpen, msg: ErrBreakerOpen.Error()}
	}

	if box := p.pool.Load(); box != nil {
		return box.p, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if box := p.pool.Load(); box != nil {
		return box.p, nil
	}

	octx := ctx
	if p.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		octx, cancel = context.WithTimeout(ctx, p.cfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := p.open(octx)
	if err != nil {
		p.ReportFailure()
		return nil, newConnectionError(err, p.cfg.Secrets)
	}
	p.ReportSuccess()
	p.pool.Store(&poolBox{p: pool})
	return pool, nil
}

// Ready acquires the pool and pings it.
func (p *Provider) Ready(ctx context.Context) error {
	h, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	if err := h.PingContext(ctx); err != nil {
		p.ReportFailure()
		return newConnectionError(err, p.cfg.Secrets)
	}
	p.ReportSuccess()
	return nil
}

// ReportFailure counts a connection failure against the breaker.
func (p *Provider) ReportFailure() {
	if p.cfg.Breaker != nil {
		p.cfg.Breaker.RecordFailure()
	}
}

// ReportSuccess resets the breaker.
func (p *Provider) ReportSuccess() {
	if p.cfg.Breaker != nil {
		p.cfg.Breaker.RecordSuccess()
	}
}

// Close closes the pool if it was opened. It is safe to call Close
// multiple times.
func (p *Provider) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if box := p.pool.Swap(nil); box != nil {
		return box.p.Close()
	}
	return nil
}
