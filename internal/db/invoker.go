package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/allaspectsdev/procgate/internal/params"
)

// Dialect executes a bound procedure call on a handle.
type Dialect interface {
	Execute(ctx context.Context, h Handle, req *params.Request) (*Result, error)
}

// Caller executes procedure calls. Handlers depend on this interface.
type Caller interface {
	Invoke(ctx context.Context, req *params.Request) (*Result, error)
}

// Invoker runs procedure calls through a Dialect on the provider's pool.
// Each call is attempted at most once.
type Invoker struct {
	provider *Provider
	dialect  Dialect
}

// NewInvoker creates an invoker.
func NewInvoker(provider *Provider, dialect Dialect) *Invoker {
	return &Invoker{provider: provider, dialect: dialect}
}

// Invoke executes req. Pool failures are returned as *ConnectionError,
// procedure failures as *ExecutionError wrapping the driver error.
func (inv *Invoker) Invoke(ctx context.Context, req *params.Request) (*Result, error) {
	h, err := inv.provider.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := inv.dialect.Execute(ctx, h, req)
	logger := zerolog.Ctx(ctx).With().
		Str("procedure", req.Procedure).
		Str("mode", req.Mode.String()).
		Dur("elapsed", time.Since(start)).
		Logger()

	if err != nil {
		if isConnFailure(err) {
			inv.provider.ReportFailure()
			return nil, newConnectionError(err, inv.provider.cfg.Secrets)
		}
		inv.provider.ReportSuccess()
		return nil, &ExecutionError{Procedure: req.Procedure, Err: err}
	}
	inv.provider.ReportSuccess()

	logger.Debug().Int("rows", res.Total()).Ints64("rows_affected", res.RowsAffected).Msg("procedure executed")
	return res, nil
}

// isConnFailure reports errors that prove the call never reached the server.
func isConnFailure(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var op *net.OpError
	return errors.As(err, &op) && op.Op == "dial"
}
