package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/allaspectsdev/procgate/internal/db"
	"github.com/allaspectsdev/procgate/internal/params"
	"github.com/allaspectsdev/procgate/internal/procs"
)

// HandleCustomerUpsert creates or updates a customer keyed by phone.
func (h *Handler) HandleCustomerUpsert(w http.ResponseWriter, r *http.Request) {
	in, ok := readBody(w, r, epCustomerUpsert)
	if !ok {
		return
	}
	req, err := h.catalog.Bind(procs.CustomerUpsert, in)
	if err != nil {
		h.fail(w, r, epCustomerUpsert, err)
		return
	}

	// The check and the write are separate calls; two concurrent first
	// writes of one phone may both report "criado".
	existed, known, err := h.customerExists(r, req.Get("Celular"))
	if err != nil {
		h.fail(w, r, epCustomerUpsert, err)
		return
	}

	if _, err := h.caller.Invoke(r.Context(), req); err != nil {
		h.fail(w, r, epCustomerUpsert, err)
		return
	}

	msg := "Cliente criado/atualizado com sucesso!"
	if known {
		if existed {
			msg = "Cliente atualizado com sucesso!"
		} else {
			msg = "Cliente criado com sucesso!"
		}
	}
	respond(w, http.StatusOK, msg, nil)
}

// customerExists runs the optional pre-check. known is false when the
// check is disabled or failed. A connection failure is returned so the
// write is not attempted against an unreachable database.
func (h *Handler) customerExists(r *http.Request, celular any) (existed, known bool, err error) {
	if !h.precheck {
		return false, false, nil
	}
	req, err := h.catalog.Bind(procs.CustomerGet, params.Input{"celular": celular})
	if err != nil {
		return false, false, nil
	}
	res, err := h.caller.Invoke(r.Context(), req)
	if err != nil {
		var cerr *db.ConnectionError
		if errors.As(err, &cerr) {
			return false, false, err
		}
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("customer pre-check failed")
		return false, false, nil
	}
	return len(res.Rows()) > 0, true, nil
}

// HandleCustomerList lists every customer.
func (h *Handler) HandleCustomerList(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.call(w, r, procs.CustomerList, params.Input{}, epCustomerList)
	if !ok {
		return
	}
	rows := res.Rows()
	if len(rows) == 0 {
		respond(w, http.StatusOK, "Nenhum cliente encontrado!", nil)
		return
	}
	respond(w, http.StatusOK, fmt.Sprintf("Clientes encontrados: %d", len(rows)), rows)
}

// customerView is the reshaped single-customer record.
type customerView struct {
	Nome                any `json:"Nome"`
	Celular             any `json:"Celular"`
	CPF                 any `json:"CPF"`
	Email               any `json:"Email"`
	Assinante           any `json:"Assinante"`
	PagtoEmDia          any `json:"PagtoEmDia"`
	PrefResp            any `json:"PrefResp"`
	SaldoTrocaMensTexto any `json:"SaldoTrocaMensTexto"`
	SaldoTrocaMensAudio any `json:"SaldoTrocaMensAudio"`
	Validade            any `json:"Validade"`
}

func newCustomerView(row db.Row) customerView {
	get := func(col string) any {
		v, _ := row.Get(col)
		return v
	}
	return customerView{
		Nome:                get("NomeCli"),
		Celular:             get("Celular"),
		CPF:                 get("CPF"),
		Email:               get("eMail"),
		Assinante:           get("Assinante"),
		PagtoEmDia:          get("PagtoEmDia"),
		PrefResp:            get("PrefResp"),
		SaldoTrocaMensTexto: get("SaldoTrocaMensTexto"),
		SaldoTrocaMensAudio: get("SaldoTrocaMensAudio"),
		Validade:            get("Validade"),
	}
}

func (c customerView) message() string {
	return fmt.Sprintf("Cliente encontrado com sucesso! Nome: %s, Celular: %s, CPF: %s, Email: %s, Assinante: %s, "+
		"Recarga em Dia: %s, Preferência de Resposta: %s, Saldo de Mensagens em Texto: %s, "+
		"Saldo de Mensagens em Audio: %s, Validade de Mensagens: %s",
		text(c.Nome), text(c.Celular), text(c.CPF), text(c.Email), text(c.Assinante),
		text(c.PagtoEmDia), text(c.PrefResp), text(c.SaldoTrocaMensTexto),
		text(c.SaldoTrocaMensAudio), text(c.Validade))
}

// text renders a column value for a message; NULL renders as "null".
func text(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}

// HandleCustomerGet fetches one customer by phone. Not found is a 200.
func (h *Handler) HandleCustomerGet(w http.ResponseWriter, r *http.Request) {
	in := params.Input{"celular": chi.URLParam(r, "celular")}
	res, _, ok := h.call(w, r, procs.CustomerGet, in, epCustomerGet)
	if !ok {
		return
	}
	rows := res.Rows()
	if len(rows) == 0 {
		respond(w, http.StatusOK, "Cliente não cadastrado!", nil)
		return
	}
	view := newCustomerView(rows[0])
	respond(w, http.StatusOK, view.message(), view)
}

// HandleCustomerDelete deletes one customer by phone. Nothing to delete is
// a 200 with an explanation.
func (h *Handler) HandleCustomerDelete(w http.ResponseWriter, r *http.Request) {
	in := params.Input{"celular": chi.URLParam(r, "celular")}
	res, _, ok := h.call(w, r, procs.CustomerDelete, in, epCustomerDelete)
	if !ok {
		return
	}
	if res.Affected() == 0 {
		respond(w, http.StatusOK, "Cliente não encontrado ou já excluído!", nil)
		return
	}
	respond(w, http.StatusOK, "Cliente excluído com sucesso!", nil)
}
