package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/allaspectsdev/procgate/internal/db"
	"github.com/allaspectsdev/procgate/internal/params"
)

// procFunc runs one emulated procedure.
type procFunc func(ctx context.Context, h db.Handle, a args) (*db.Result, error)

// Emulator implements db.Dialect by mapping procedure names onto SQL
// against the local schema. Names are matched case-insensitively, as SQL
// Server does.
type Emulator struct {
	procs map[string]procFunc
}

var builtin = map[string]procFunc{
	"spgrcliente":           upsertCliente,
	"spsecliente":           listClientes,
	"spse1cliente":          getCliente,
	"spexcliente":           deleteCliente,
	"spgrcomandoia":         insertComando,
	"spse1comandoatu":       currentComando,
	"spcontatokens":         insertTokens,
	"spgrcontrolefinanc":    insertFinanceiro,
	"spsepacotepadrao":      pacotesPadrao,
	"spsepacotechave":       pacotesChave,
	"spgrthreadia":          upsertThread,
	"spsethreadia":          listThreads,
	"spexthreadia":          deleteThread,
	"spserelatorio":         relatorio,
	"spserelatoriocontatos": relatorioContatos,
}

// NewEmulator returns an emulator. overrides maps default procedure names
// to configured replacements; the replacement names are served too.
func NewEmulator(overrides map[string]string) *Emulator {
	procs := make(map[string]procFunc, len(builtin)+len(overrides))
	for name, fn := range builtin {
		procs[name] = fn
	}
	for from, to := range overrides {
		if fn, ok := builtin[strings.ToLower(from)]; ok {
			procs[strings.ToLower(to)] = fn
		}
	}
	return &Emulator{procs: procs}
}

// Execute implements db.Dialect.
func (e *Emulator) Execute(ctx context.Context, h db.Handle, req *params.Request) (*db.Result, error) {
	fn, ok := e.procs[strings.ToLower(req.Procedure)]
	if !ok {
		return nil, fmt.Errorf("store: procedure %q not found", req.Procedure)
	}
	return fn(ctx, h, argsOf(req))
}

// args holds bound values by lower-cased parameter name.
type args map[string]any

func argsOf(req *params.Request) args {
	a := make(args, len(req.Args))
	for _, arg := range req.Args {
		a[strings.ToLower(arg.Name)] = sqliteValue(arg.Value)
	}
	return a
}

func sqliteValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.UTC().Format("2006-01-02 15:04:05")
	}
	return v
}

func (a args) has(name string) bool {
	_, ok := a[strings.ToLower(name)]
	return ok
}

func (a args) get(name string) any {
	return a[strings.ToLower(name)]
}

// str returns the named value as text; absent and NULL become "".
func (a args) str(name string) string {
	switch v := a.get(name).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func execOne(ctx context.Context, h db.Handle, query string, qargs ...any) (*db.Result, error) {
	res, err := h.ExecContext(ctx, query, qargs...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	return &db.Result{RowsAffected: []int64{n}}, nil
}

func querySet(ctx context.Context, h db.Handle, query string, qargs ...any) ([]db.Row, error) {
	rows, err := h.QueryContext(ctx, query, qargs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets, _, err := db.ReadResultSets(rows)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return []db.Row{}, nil
	}
	return sets[0], nil
}

func resultOf(sets ...[]db.Row) *db.Result {
	res := &db.Result{}
	for _, s := range sets {
		res.ResultSets = append(res.ResultSets, s)
		res.RowsAffected = append(res.RowsAffected, int64(len(s)))
	}
	return res
}

func queryOne(ctx context.Context, h db.Handle, query string, qargs ...any) (*db.Result, error) {
	set, err := querySet(ctx, h, query, qargs...)
	if err != nil {
		return nil, err
	}
	return resultOf(set), nil
}

const selectCliente = `SELECT celular AS Celular, nome_cli AS NomeCli, cpf AS CPF, email AS eMail,
    assinante AS Assinante, pagto_em_dia AS PagtoEmDia, pref_resp AS PrefResp,
    nome_tool_chamadora AS NomeToolChamadora, nome_agente AS NomeAgente,
    saldo_troca_mens_texto AS SaldoTrocaMensTexto, saldo_troca_mens_audio AS SaldoTrocaMensAudio,
    validade AS Validade,
    criado_em AS DataCadastro
FROM clientes`

func upsertCliente(ctx context.Context, h db.Handle, a args) (*db.Result, error) {
	ts := now()
	return execOne(ctx, h, `INSERT INTO clientes
    (celular, nome_cli, cpf, email, assinante, pagto_em_dia, pref_resp, nome_tool_chamadora, nome_agente, criado_em, atualizado_em)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(celular) DO UPDATE SET
    nome_cli = excluded.nome_cli,
    cpf = excluded.cpf,
    email = excluded.email,
    assinante = excluded.assinante,
    pagto_em_dia = excluded.pagto_em_dia,
    pref_resp = excluded.pref_resp,
    nome_tool_chamadora = excluded.nome_tool_chamadora,
    nome_agente = excluded.nome_agente,
    atualizado_em = excluded.atualizado_em`,
		a.str("Celular"), a.str("NomeCli"), a.str("CPF"), a.str("eMail"),
		a.str("Assinante"), a.str("PagtoEmDia"), a.str("PrefResp"),
		a.str("NomeToolChamadora"), a.str("NomeAgente"), ts, ts,
	)
}

func listClientes(ctx context.Context, h db.Handle, _ args) (*db.Result, error) {
	return queryOne(ctx, h, selectCliente+" ORDER BY nome_cli, celular")
}

func getCliente(ctx context.Context, h db.Handle, a args) (*db.Result, error) {
	return queryOne(ctx, h, selectCliente+" WHERE celular = ?", a.str("Celular"))
}

func deleteCliente(ctx context.Context, h db.Handle, a args) (*db.Result, error) {
	return execOne(ctx, h, "DELETE FROM clientes WHERE celular = ?", a.str("Celular"))
}

func insertComando(ctx context.Context, h db.Handle, a args) (*db.Result, error) {
	return execOne(ctx, h,
		"INSERT INTO comandos_ia (prompt_ia, instr_padrao, obs, criado_em) VALUES (?, ?, ?, ?)",
		a.str("PromptIA"), a.str("InstrPadrao"), a.str("Obs"), now(),
	)
}

// currentComando returns the most recent prompt.
func currentComando(ctx context.Context, h db.Handle, _ args) (*db.Result, error) {
	return queryOne(ctx, h, `SELECT id AS IdComando, prompt_ia AS PromptIA, instr_padrao AS InstrPadrao,
    obs AS Obs, criado_em AS DataCriacao
FROM comandos_ia ORDER BY id DESC LIMIT 1`)
}

func insertTokens(ctx context.Context, h db.Handle, a args) (*db.Result, error) {
	return execOne(ctx, h, `INSERT INTO conta_tokens
    (celular, pref_resp, pergunta, resposta, nome_ia, dolar_cota, nome_agente, nome_tool, intencao, foco, criado_em)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.str("Celular"), a.str("PrefResp"), a.str("Pergunta"), a.str("Resposta"),
		a.str("NomeIA"), a.str("DolarCota"), a.str("NomeAgente"), a.str("NomeTool"),
		a.str("Intencao"), a.str("Foco"), now(),
	)
}

func insertFinanceiro(ctx context.Context, h db.Handle, a args) (*db.Result, error) {
	return execOne(ctx, h, `INSERT INTO controle_financ
    (celular, cod_oper, invoice_number, cod_pacote, data_oper, linha_pix, data_cria_pix, data_rec_pix, nome_agente, nome_tool, criado_em)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.str("Celular"), a.get("CodOper"), a.get("InvoiceNumber"), a.get("CodPacote"),
		a.get("DataOper"), a.str("LinhaPix"), a.str("DataCriaPix"), a.str("DataRecPix"),
		a.str("NomeAgente"), a.str("NomeTool"), now(),
	)
}

const selectPacote = `SELECT cod_pacote AS CodPacote, descricao AS Descricao, palavra_chave AS PalavraChave,
    qtd_mens_texto AS QtdMensTexto, qtd_mens_audio AS QtdMensAudio, valor AS Valor
FROM pacotes`

func pacotesPadrao(ctx context.Context, h db.Handle, _ args) (*db.Result, error) {
	return queryOne(ctx, h, selectPacote+" WHERE padrao = 1 ORDER BY cod_pacote")
}

// pacotesChave filters by keyword when one is given and lists every
// package otherwise.
func pacotesChave(ctx context.Context, h db.Handle, a args) (*db.Result, error) {
	if !a.has("PalavraChave") || a.str("PalavraChave") == "" {
		return queryOne(ctx, h, selectPacote+" ORDER BY cod_pacote")
	}
	kw := a.str("PalavraChave")
	return queryOne(ctx, h,
		selectPacote+" WHERE palavra_chave LIKE '%' || ? || '%' OR descricao LIKE '%' || ? || '%' ORDER BY cod_pacote",
		kw, kw,
	)
}

const selectThread = `SELECT tread_id AS TreadId, celular AS Celular, assunto AS Assunto,
    criado_em AS DataCriacao, atualizado_em AS DataAtualizacao
FROM threads_ia`

// upsertThread writes the thread and returns the stored row.
func upsertThread(ctx context.Context, h db.Handle, a args) (*db.Result, error) {
	ts := now()
	_, err := h.ExecContext(ctx, `INSERT INTO threads_ia (tread_id, celular, assunto, criado_em, atualizado_em)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(tread_id) DO UPDATE SET
    celular = excluded.celular,
    assunto = excluded.assunto,
    atualizado_em = excluded.atualizado_em`,
		a.str("TreadId"), a.str("Celular"), a.str("Assunto"), ts, ts,
	)
	if err != nil {
		return nil, err
	}
	return queryOne(ctx, h, selectThread+" WHERE tread_id = ?", a.str("TreadId"))
}

func listThreads(ctx context.Context, h db.Handle, a args) (*db.Result, error) {
	if a.has("Celular") {
		return queryOne(ctx, h, selectThread+" WHERE celular = ? ORDER BY atualizado_em DESC, tread_id", a.str("Celular"))
	}
	return queryOne(ctx, h, selectThread+" ORDER BY atualizado_em DESC, tread_id")
}

func deleteThread(ctx context.Context, h db.Handle, a args) (*db.Result, error) {
	if a.has("Celular") {
		return execOne(ctx, h, "DELETE FROM threads_ia WHERE tread_id = ? AND celular = ?", a.str("TreadId"), a.str("Celular"))
	}
	return execOne(ctx, h, "DELETE FROM threads_ia WHERE tread_id = ?", a.str("TreadId"))
}

// relatorio returns two sets: token usage per customer, then the
// financial operations.
func relatorio(ctx context.Context, h db.Handle, _ args) (*db.Result, error) {
	usage, err := querySet(ctx, h, `SELECT c.celular AS Celular, c.nome_cli AS NomeCli, COUNT(t.id) AS Interacoes
FROM clientes c LEFT JOIN conta_tokens t ON t.celular = c.celular
GROUP BY c.celular, c.nome_cli
ORDER BY c.nome_cli, c.celular`)
	if err != nil {
		return nil, err
	}
	ops, err := querySet(ctx, h, `SELECT celular AS Celular, cod_oper AS CodOper, invoice_number AS InvoiceNumber,
    cod_pacote AS CodPacote, data_oper AS DataOper
FROM controle_financ ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return resultOf(usage, ops), nil
}

func relatorioContatos(ctx context.Context, h db.Handle, _ args) (*db.Result, error) {
	return queryOne(ctx, h, `SELECT celular AS Celular, nome_cli AS NomeCli, email AS eMail,
    assinante AS Assinante, pagto_em_dia AS PagtoEmDia
FROM clientes ORDER BY nome_cli, celular`)
}

// Opener returns a db.Opener for the database at path.
func Opener(path string) db.Opener {
	return func(ctx context.Context) (db.Pool, error) {
		s, err := Open(ctx, path)
		if err != nil {
			return nil, err
		}
		v, err := s.SchemaVersion(ctx)
		if err != nil {
			s.Close()
			return nil, err
		}
		log.Info().Str("path", s.Path()).Int("schema_version", v).Msg("sqlite store opened")
		return s, nil
	}
}
