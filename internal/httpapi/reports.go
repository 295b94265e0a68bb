package httpapi

import (
	"fmt"
	"net/http"

	"github.com/allaspectsdev/procgate/internal/params"
	"github.com/allaspectsdev/procgate/internal/procs"
)

// HandleReport returns every result set of the summary report as nested
// arrays. The count in the message spans all sets.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.call(w, r, procs.ReportSummary, params.Input{}, epReport)
	if !ok {
		return
	}
	total := res.Total()
	if total == 0 {
		respond(w, http.StatusOK, "Nenhum registro encontrado!", nil)
		return
	}
	respond(w, http.StatusOK, fmt.Sprintf("Registros encontrados: %d", total), res.ResultSets)
}

// HandleReportContacts lists customer contacts.
func (h *Handler) HandleReportContacts(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.call(w, r, procs.ReportContacts, params.Input{}, epReportContacts)
	if !ok {
		return
	}
	rows := res.Rows()
	if len(rows) == 0 {
		respond(w, http.StatusOK, "Nenhum contato encontrado!", nil)
		return
	}
	respond(w, http.StatusOK, fmt.Sprintf("Contatos encontrados: %d", len(rows)), rows)
}

// HandleHealth reports that the process is serving.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// HandleReady reports whether the database pool can be acquired.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if h.readiness != nil {
		if err := h.readiness.Ready(r.Context()); err != nil {
			env := envelope{Status: "unavailable", Error: unavailable.msg}
			if h.exposeDetails.Load() {
				env.Details = err.Error()
			}
			writeJSON(w, http.StatusServiceUnavailable, env)
			return
		}
	}
	writeJSON(w, http.StatusOK, envelope{Status: "ready"})
}
