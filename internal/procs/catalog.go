// Package procs is the table of stored procedures the gateway calls and the
// typed parameters each one takes.
package procs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/allaspectsdev/procgate/internal/params"
)

// Key identifies a logical operation.
type Key string

const (
	CustomerUpsert  Key = "customer.upsert"
	CustomerList    Key = "customer.list"
	CustomerGet     Key = "customer.get"
	CustomerDelete  Key = "customer.delete"
	PromptCreate    Key = "prompt.create"
	PromptList      Key = "prompt.list"
	TokensCreate    Key = "tokens.create"
	FinanceCreate   Key = "finance.create"
	PackagesDefault Key = "packages.standard"
	PackagesKeyword Key = "packages.keyword"
	ThreadUpsert    Key = "thread.upsert"
	ThreadList      Key = "thread.list"
	ThreadListAll   Key = "thread.listAll"
	ThreadDelete    Key = "thread.delete"
	ReportSummary   Key = "report.summary"
	ReportContacts  Key = "report.contacts"
)

// LatestRevision is the newest procedure signature revision.
const LatestRevision = 2

// param is a binder parameter tagged with the revision that introduced it.
type param struct {
	params.Param
	since int
}

type entry struct {
	procedure string
	mode      params.Mode
	params    []param
}

func field(name, field string, t params.Type, required bool, def params.Default) param {
	return param{Param: params.Param{Name: name, Field: field, Type: t, Required: required, Default: def}, since: 1}
}

func label(name, field string, size int) param {
	return param{Param: params.Param{Name: name, Field: field, Type: params.VarChar(size), Default: params.DefaultEmpty}, since: 2}
}

var (
	required = true
	optional = false
	none     = params.DefaultNull
)

var table = map[Key]entry{
	CustomerUpsert: {"SpGrCliente", params.ModeExec, []param{
		field("Celular", "celular", params.VarChar(20), required, none),
		field("NomeCli", "nome", params.VarChar(200), optional, params.DefaultEmpty),
		field("CPF", "cpf", params.VarChar(11), optional, params.DefaultEmpty),
		field("eMail", "email", params.VarChar(50), optional, params.DefaultEmpty),
		field("Assinante", "assinante", params.VarChar(3), optional, params.DefaultEmpty),
		field("PagtoEmDia", "pagtoEmDia", params.VarChar(3), optional, params.DefaultEmpty),
		field("PrefResp", "prefResp", params.VarChar(5), optional, params.DefaultEmpty),
		field("NomeToolChamadora", "nomeToolChamadora", params.VarChar(60), optional, params.DefaultEmpty),
		label("NomeAgente", "nomeAgente", 60),
	}},
	CustomerList: {"SpSeCliente", params.ModeQuery, nil},
	CustomerGet: {"spse1cliente", params.ModeQuery, []param{
		field("Celular", "celular", params.VarChar(20), required, none),
	}},
	CustomerDelete: {"SpExCliente", params.ModeExec, []param{
		field("Celular", "celular", params.VarChar(20), required, none),
	}},
	PromptCreate: {"SpGrComandoIA", params.ModeExec, []param{
		field("PromptIA", "prompt", params.VarChar(5000), required, none),
		field("InstrPadrao", "instrupadrao", params.VarChar(5000), required, none),
		field("Obs", "obs", params.VarChar(5000), required, none),
	}},
	PromptList: {"SpSe1ComandoAtu", params.ModeQuery, nil},
	TokensCreate: {"SpContaTokens", params.ModeExec, []param{
		field("Celular", "celular", params.Char(20), required, none),
		field("PrefResp", "prefResp", params.Char(5), required, none),
		field("Pergunta", "pergunta", params.NVarCharMax(), required, none),
		field("Resposta", "resposta", params.NVarCharMax(), required, none),
		field("NomeIA", "nomeIA", params.Char(30), required, none),
		field("DolarCota", "dolarCota", params.Decimal(10, 6), required, none),
		label("NomeAgente", "nomeAgente", 60),
		label("NomeTool", "nomeTool", 60),
		label("Intencao", "intencao", 100),
		label("Foco", "foco", 100),
	}},
	FinanceCreate: {"SpGrControleFinanc", params.ModeExec, []param{
		field("Celular", "celular", params.VarChar(20), required, none),
		field("CodOper", "codOper", params.Int(), required, none),
		field("InvoiceNumber", "invoiceNumber", params.Int(), required, none),
		field("CodPacote", "codPacote", params.Int(), required, none),
		field("DataOper", "dataOper", params.SmallDateTime(), optional, params.DefaultNull),
		field("LinhaPix", "linhaPix", params.VarChar(512), optional, params.DefaultEmpty),
		field("DataCriaPix", "dataCriaPix", params.VarChar(20), optional, params.DefaultEmpty),
		field("DataRecPix", "dataRecPix", params.VarChar(20), optional, params.DefaultEmpty),
		label("NomeAgente", "nomeAgente", 60),
		label("NomeTool", "nomeTool", 60),
	}},
	PackagesDefault: {"SpSePacotePadrao", params.ModeQuery, nil},
	PackagesKeyword: {"SpSePacoteChave", params.ModeQuery, []param{
		field("PalavraChave", "palavraChave", params.VarChar(255), optional, params.DefaultOmit),
	}},
	ThreadUpsert: {"SpGrThreadIA", params.ModeQuery, []param{
		field("TreadId", "ThreadId", params.Char(50), required, none),
		field("Celular", "Celular", params.Char(20), required, none),
		field("Assunto", "Assunto", params.VarChar(200), required, none),
	}},
	ThreadList: {"SpSeThreadIA", params.ModeQuery, []param{
		field("Celular", "celular", params.Char(20), required, none),
	}},
	ThreadListAll: {"SpSeThreadIA", params.ModeQuery, nil},
	ThreadDelete: {"SpExThreadIA", params.ModeExec, []param{
		withAliases(field("TreadId", "TreadId", params.Char(50), required, none), "ThreadId"),
		field("Celular", "Celular", params.Char(20), optional, params.DefaultOmit),
	}},
	ReportSummary:  {"SpSeRelatorio", params.ModeQuery, nil},
	ReportContacts: {"SpSeRelatorioContatos", params.ModeQuery, nil},
}

func withAliases(pr param, aliases ...string) param {
	pr.Aliases = aliases
	return pr
}

// Catalog resolves operation keys to parameter specs for one schema
// revision, applying procedure name overrides.
type Catalog struct {
	revision  int
	overrides map[string]string
}

// New returns a catalog for revision. Override keys are matched against
// the default procedure names case-insensitively.
func New(revision int, overrides map[string]string) (*Catalog, error) {
	if revision < 1 || revision > LatestRevision {
		return nil, fmt.Errorf("procs: unknown schema revision %d", revision)
	}
	known := map[string]bool{}
	for _, e := range table {
		known[strings.ToLower(e.procedure)] = true
	}
	norm := make(map[string]string, len(overrides))
	for k, v := range overrides {
		lk := strings.ToLower(k)
		if !known[lk] {
			return nil, fmt.Errorf("procs: override for unknown procedure %q", k)
		}
		norm[lk] = v
	}
	return &Catalog{revision: revision, overrides: norm}, nil
}

// Revision returns the schema revision the catalog was built for.
func (c *Catalog) Revision() int { return c.revision }

// Spec returns the parameter spec for k. It panics on an unknown key,
// which is a programming error.
func (c *Catalog) Spec(k Key) params.Spec {
	e, ok := table[k]
	if !ok {
		panic(fmt.Sprintf("procs: unknown key %q", k))
	}
	name := e.procedure
	if o, ok := c.overrides[strings.ToLower(name)]; ok {
		name = o
	}
	spec := params.Spec{Procedure: name, Mode: e.mode}
	for _, pr := range e.params {
		if pr.since <= c.revision {
			spec.Params = append(spec.Params, pr.Param)
		}
	}
	return spec
}

// Bind builds the typed request for k from in.
func (c *Catalog) Bind(k Key, in params.Input) (*params.Request, error) {
	return c.Spec(k).Bind(in)
}

// Keys returns every operation key in sorted order.
func Keys() []Key {
	keys := make([]Key, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
