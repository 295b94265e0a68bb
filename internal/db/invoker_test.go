package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allaspectsdev/procgate/internal/config"
	"github.com/allaspectsdev/procgate/internal/params"
)

func newMockInvoker(t *testing.T) (*Invoker, sqlmock.Sqlmock) {
	t.Helper()
	var opens atomic.Int32
	open, mock := mockOpener(t, &opens)
	p := NewProvider(open, ProviderConfig{Breaker: NewBreaker(3, time.Minute)})
	return NewInvoker(p, SQLServer{}), mock
}

func TestInvoke_QueryReadsEverySet(t *testing.T) {
	inv, mock := newMockInvoker(t)

	totals := sqlmock.NewRows([]string{"Total", "Assinantes"}).AddRow(int64(12), int64(5))
	contacts := sqlmock.NewRows([]string{"Celular", "NomeCli"}).
		AddRow("5511999999999", []byte("Ana")).
		AddRow("5511888888888", "Bruno")
	mock.ExpectQuery("SpSeRelatorio").WillReturnRows(totals, contacts)

	res, err := inv.Invoke(context.Background(), &params.Request{Procedure: "SpSeRelatorio", Mode: params.ModeQuery})
	require.NoError(t, err)

	require.Len(t, res.ResultSets, 2)
	assert.Equal(t, []int64{1, 2}, res.RowsAffected)
	assert.Equal(t, 3, res.Total())

	name, _ := res.ResultSets[1][0].Get("NomeCli")
	assert.Equal(t, "Ana", name, "[]byte values are returned as strings")

	out, err := json.Marshal(res.ResultSets[1][0])
	require.NoError(t, err)
	assert.Equal(t, `{"Celular":"5511999999999","NomeCli":"Ana"}`, string(out))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoke_NamedTypedArgs(t *testing.T) {
	inv, mock := newMockInvoker(t)

	spec := params.Spec{Procedure: "SpSeThreadIA", Mode: params.ModeQuery, Params: []params.Param{
		{Name: "Celular", Field: "celular", Type: params.Char(20), Default: params.DefaultNull},
	}}
	req, err := spec.Bind(params.Input{"celular": "5511999999999"})
	require.NoError(t, err)

	mock.ExpectQuery("SpSeThreadIA").
		WithArgs(sql.Named("Celular", "5511999999999")).
		WillReturnRows(sqlmock.NewRows([]string{"TreadId"}).AddRow("thread_1"))

	res, err := inv.Invoke(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Rows(), 1)
	assert.Equal(t, "thread_1", res.Rows()[0].String("TreadId"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoke_ExecReturnsRowsAffected(t *testing.T) {
	inv, mock := newMockInvoker(t)

	mock.ExpectExec("SpExCliente").
		WithArgs(sql.Named("Celular", "5511999999999")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := &params.Request{Procedure: "SpExCliente", Mode: params.ModeExec, Args: []params.Arg{
		{Name: "Celular", Type: params.VarChar(20), Value: "5511999999999"},
	}}
	res, err := inv.Invoke(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.RowsAffected)
	assert.Equal(t, int64(1), res.Affected())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoke_ExecutionErrorKeepsChain(t *testing.T) {
	inv, mock := newMockInvoker(t)

	serverErr := mssql.Error{Number: 50000, Message: "Celular inválido", LineNo: 7}
	mock.ExpectExec("SpGrCliente").WillReturnError(serverErr)

	_, err := inv.Invoke(context.Background(), &params.Request{Procedure: "SpGrCliente", Mode: params.ModeExec})
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "SpGrCliente", execErr.Procedure)

	var me mssql.Error
	require.ErrorAs(t, err, &me)
	assert.Equal(t, int32(50000), me.Number)
}

func TestInvoke_DialFailureIsConnectionError(t *testing.T) {
	inv, mock := newMockInvoker(t)

	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	mock.ExpectQuery("SpSeCliente").WillReturnError(dialErr)

	_, err := inv.Invoke(context.Background(), &params.Request{Procedure: "SpSeCliente", Mode: params.ModeQuery})
	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)

	var execErr *ExecutionError
	assert.False(t, errors.As(err, &execErr))
}

func TestInvoke_AcquireFailurePassesThrough(t *testing.T) {
	p := NewProvider(func(ctx context.Context) (Pool, error) {
		return nil, errors.New("server not found")
	}, ProviderConfig{})
	inv := NewInvoker(p, SQLServer{})

	_, err := inv.Invoke(context.Background(), &params.Request{Procedure: "SpSeCliente"})
	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
}

func TestNamedArgs_Types(t *testing.T) {
	args := NamedArgs([]params.Arg{
		{Name: "Pergunta", Type: params.NVarCharMax(), Value: "olá"},
		{Name: "Celular", Type: params.Char(20), Value: "5511"},
		{Name: "CodOper", Type: params.Int(), Value: int64(3)},
		{Name: "DataOper", Type: params.SmallDateTime(), Value: nil},
	})
	require.Len(t, args, 4)

	assert.Equal(t, sql.Named("Pergunta", mssql.NVarCharMax("olá")), args[0])
	assert.Equal(t, sql.Named("Celular", mssql.VarChar("5511")), args[1])
	assert.Equal(t, sql.Named("CodOper", int64(3)), args[2])
	assert.Equal(t, sql.Named("DataOper", nil), args[3])
}

func TestSQLServerDSN(t *testing.T) {
	cfg := config.DefaultConfig().Database
	cfg.Host = "db.internal"
	cfg.Name = "crm"
	cfg.User = "gateway"

	dsn := SQLServerDSN(cfg, "p@ss word")
	assert.Contains(t, dsn, "sqlserver://gateway:")
	assert.Contains(t, dsn, "@db.internal:1433")
	assert.Contains(t, dsn, "database=crm")
	assert.Contains(t, dsn, "TrustServerCertificate=true")

	cfg.Instance = "SQLEXPRESS"
	dsn = SQLServerDSN(cfg, "")
	assert.Contains(t, dsn, "@db.internal/SQLEXPRESS")
}
