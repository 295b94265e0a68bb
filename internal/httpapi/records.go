package httpapi

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/allaspectsdev/procgate/internal/params"
	"github.com/allaspectsdev/procgate/internal/procs"
	"github.com/allaspectsdev/procgate/internal/tokenizer"
)

type promptEcho struct {
	Prompt       any `json:"prompt"`
	InstruPadrao any `json:"instrupadrao"`
	Obs          any `json:"obs"`
}

// HandlePromptCreate stores a prompt template.
func (h *Handler) HandlePromptCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := readBody(w, r, epPromptCreate)
	if !ok {
		return
	}
	if _, _, ok := h.call(w, r, procs.PromptCreate, in, epPromptCreate); !ok {
		return
	}
	respond(w, http.StatusCreated, "Prompt cadastrado com sucesso!", promptEcho{
		Prompt:       in["prompt"],
		InstruPadrao: in["instrupadrao"],
		Obs:          in["obs"],
	})
}

// HandlePromptList returns the current prompt templates.
func (h *Handler) HandlePromptList(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.call(w, r, procs.PromptList, params.Input{}, epPromptList)
	if !ok {
		return
	}
	rows := res.Rows()
	if len(rows) == 0 {
		respond(w, http.StatusOK, "Nenhum prompt encontrado!", nil)
		return
	}
	respond(w, http.StatusOK, fmt.Sprintf("Prompts encontrados: %d", len(rows)), rows)
}

type tokensEcho struct {
	Celular    any                 `json:"celular"`
	PrefResp   any                 `json:"prefResp"`
	Pergunta   any                 `json:"pergunta"`
	Resposta   any                 `json:"resposta"`
	NomeIA     any                 `json:"nomeIA"`
	DolarCota  any                 `json:"dolarCota"`
	Estimativa *tokenizer.Estimate `json:"estimativa,omitempty"`
}

// HandleTokens records the token cost of one AI exchange.
func (h *Handler) HandleTokens(w http.ResponseWriter, r *http.Request) {
	in, ok := readBody(w, r, epTokens)
	if !ok {
		return
	}
	_, req, ok := h.call(w, r, procs.TokensCreate, in, epTokens)
	if !ok {
		return
	}
	respond(w, http.StatusCreated, "Registro de tokens salvo com sucesso!", tokensEcho{
		Celular:    in["celular"],
		PrefResp:   in["prefResp"],
		Pergunta:   in["pergunta"],
		Resposta:   in["resposta"],
		NomeIA:     in["nomeIA"],
		DolarCota:  in["dolarCota"],
		Estimativa: h.estimate(r, req),
	})
}

// estimate prices the exchange. Failures are logged and dropped.
func (h *Handler) estimate(r *http.Request, req *params.Request) *tokenizer.Estimate {
	if h.estimator == nil {
		return nil
	}
	rate, _ := req.Get("DolarCota").(decimal.Decimal)
	model, _ := req.Get("NomeIA").(string)
	pergunta, _ := req.Get("Pergunta").(string)
	resposta, _ := req.Get("Resposta").(string)

	e, err := h.estimator.Estimate(model, pergunta, resposta, rate)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("model", model).Msg("token estimate unavailable")
		return nil
	}
	return e
}

type financeEcho struct {
	Celular       any `json:"celular"`
	CodOper       any `json:"codOper"`
	DataOper      any `json:"dataOper"`
	LinhaPix      any `json:"linhaPix"`
	InvoiceNumber any `json:"invoiceNumber"`
	CodPacote     any `json:"codPacote"`
	DataCriaPix   any `json:"dataCriaPix"`
	DataRecPix    any `json:"dataRecPix"`
}

// orNull echoes absent and empty values as null.
func orNull(v any) any {
	if s, ok := v.(string); ok && s == "" {
		return nil
	}
	return v
}

// HandleFinance records a financial operation.
func (h *Handler) HandleFinance(w http.ResponseWriter, r *http.Request) {
	in, ok := readBody(w, r, epFinance)
	if !ok {
		return
	}
	if _, _, ok := h.call(w, r, procs.FinanceCreate, in, epFinance); !ok {
		return
	}
	respond(w, http.StatusCreated, "Registro financeiro salvo com sucesso!", financeEcho{
		Celular:       in["celular"],
		CodOper:       in["codOper"],
		DataOper:      orNull(in["dataOper"]),
		LinhaPix:      orNull(in["linhaPix"]),
		InvoiceNumber: in["invoiceNumber"],
		CodPacote:     in["codPacote"],
		DataCriaPix:   orNull(in["dataCriaPix"]),
		DataRecPix:    orNull(in["dataRecPix"]),
	})
}

// HandlePackagesDefault lists the standard packages.
func (h *Handler) HandlePackagesDefault(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.call(w, r, procs.PackagesDefault, params.Input{}, epPackagesDefault)
	if !ok {
		return
	}
	rows := res.Rows()
	if len(rows) == 0 {
		respond(w, http.StatusOK, "Nenhum pacote encontrado!", nil)
		return
	}
	respond(w, http.StatusOK, fmt.Sprintf("Pacote encontrado: %d", len(rows)), rows)
}

// HandlePackagesKeyword lists packages, filtered by the optional
// palavraChave query parameter.
func (h *Handler) HandlePackagesKeyword(w http.ResponseWriter, r *http.Request) {
	in := params.Input{}
	if kw := r.URL.Query().Get("palavraChave"); kw != "" {
		in["palavraChave"] = kw
	}
	res, _, ok := h.call(w, r, procs.PackagesKeyword, in, epPackagesKeyword)
	if !ok {
		return
	}
	rows := res.Rows()
	if len(rows) == 0 {
		respond(w, http.StatusOK, "Nenhum pacote encontrado!", nil)
		return
	}
	respond(w, http.StatusOK, fmt.Sprintf("Pacotes palavra-chave encontrados: %d", len(rows)), rows)
}
