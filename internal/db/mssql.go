package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/shopspring/decimal"

	"github.com/allaspectsdev/procgate/internal/config"
	"github.com/allaspectsdev/procgate/internal/params"
)

// SQLServer executes requests as RPC calls: the statement is the bare
// procedure name and every argument is a named, typed parameter.
type SQLServer struct{}

// Execute implements Dialect.
func (SQLServer) Execute(ctx context.Context, h Handle, req *params.Request) (*Result, error) {
	args := NamedArgs(req.Args)

	if req.Mode == params.ModeExec {
		res, err := h.ExecContext(ctx, req.Procedure, args...)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		return &Result{RowsAffected: []int64{n}}, nil
	}

	rows, err := h.QueryContext(ctx, req.Procedure, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets, counts, err := ReadResultSets(rows)
	if err != nil {
		return nil, err
	}
	return &Result{ResultSets: sets, RowsAffected: counts}, nil
}

// NamedArgs converts bound args into sql.Named values carrying go-mssqldb
// parameter types.
func NamedArgs(args []params.Arg) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		out = append(out, sql.Named(a.Name, sqlServerValue(a)))
	}
	return out
}

func sqlServerValue(a params.Arg) any {
	if a.Value == nil {
		return nil
	}
	switch v := a.Value.(type) {
	case string:
		if a.Type.Kind == params.KindNVarCharMax {
			return mssql.NVarCharMax(v)
		}
		return mssql.VarChar(v)
	case decimal.Decimal:
		return v.String()
	case time.Time:
		return mssql.DateTime1(v)
	}
	return a.Value
}

// SQLServerDSN builds the sqlserver:// connection URL.
func SQLServerDSN(cfg config.DatabaseConfig, password string) string {
	q := url.Values{}
	q.Set("database", cfg.Name)
	if cfg.Encrypt != "" {
		q.Set("encrypt", cfg.Encrypt)
	}
	if cfg.TrustServerCertificate {
		q.Set("TrustServerCertificate", "true")
	}
	if cfg.AppName != "" {
		q.Set("app name", cfg.AppName)
	}
	q.Set("connection timeout", strconv.Itoa(int(cfg.ConnectTimeoutDuration().Seconds())))

	u := &url.URL{
		Scheme:   "sqlserver",
		RawQuery: q.Encode(),
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, password)
	}
	if cfg.Instance != "" {
		u.Host = cfg.Host
		u.Path = cfg.Instance
	} else {
		port := cfg.Port
		if port == 0 {
			port = config.DefaultDatabasePort
		}
		u.Host = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	}
	return u.String()
}

// OpenSQLServer returns an Opener for the configured SQL Server.
func OpenSQLServer(cfg config.DatabaseConfig, password string) Opener {
	return func(ctx context.Context) (Pool, error) {
		pool, err := sql.Open("sqlserver", SQLServerDSN(cfg, password))
		if err != nil {
			return nil, fmt.Errorf("open sqlserver: %w", err)
		}
		ConfigurePool(pool, cfg)
		if err := pool.PingContext(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping sqlserver %s: %w", cfg.Host, err)
		}
		return pool, nil
	}
}

// ConfigurePool applies the configured pool limits.
func ConfigurePool(pool *sql.DB, cfg config.DatabaseConfig) {
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())
}
