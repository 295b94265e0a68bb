package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/allaspectsdev/procgate/internal/sqlerr"
)

var (
	// ErrBreakerOpen is returned by Acquire while the breaker fails fast.
	ErrBreakerOpen = errors.New("circuit breaker open")
	// ErrClosed is returned by Acquire after the provider was closed.
	ErrClosed = errors.New("provider closed")
)

// ConnectionError reports that the pool could not be created or a
// connection could not be established. Its message never contains the
// connection string or credentials.
type ConnectionError struct {
	Err error
	msg string
}

func newConnectionError(err error, secrets []string) *ConnectionError {
	return &ConnectionError{Err: err, msg: redact(err.Error(), secrets)}
}

func (e *ConnectionError) Error() string {
	return "db: connection unavailable: " + e.msg
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ErrorCode tags connection failures for error normalization.
func (e *ConnectionError) ErrorCode() string { return sqlerr.CodeConnection }

// ExecutionError reports that a procedure call failed. Err is the driver
// error chain, unmodified.
type ExecutionError struct {
	Procedure string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("db: exec %s: %v", e.Procedure, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// redact removes every non-empty secret from msg.
func redact(msg string, secrets []string) string {
	for _, s := range secrets {
		if s == "" {
			continue
		}
		msg = strings.ReplaceAll(msg, s, "[REDACTED]")
	}
	return msg
}
