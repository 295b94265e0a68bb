package httpapi

import (
	"net/http"

	"github.com/allaspectsdev/procgate/internal/db"
	"github.com/allaspectsdev/procgate/internal/params"
	"github.com/allaspectsdev/procgate/internal/procs"
)

type threadEcho struct {
	ThreadID  any      `json:"ThreadId"`
	Celular   any      `json:"Celular"`
	Assunto   any      `json:"Assunto"`
	Resultado []db.Row `json:"resultado"`
}

func rowsOrEmpty(res *db.Result) []db.Row {
	if rows := res.Rows(); rows != nil {
		return rows
	}
	return []db.Row{}
}

// HandleThreadUpsert creates or updates a conversation thread.
func (h *Handler) HandleThreadUpsert(w http.ResponseWriter, r *http.Request) {
	in, ok := readBody(w, r, epThreadUpsert)
	if !ok {
		return
	}
	res, _, ok := h.call(w, r, procs.ThreadUpsert, in, epThreadUpsert)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Status:  "success",
		Message: "Thread criada/atualizada com sucesso",
		Data: threadEcho{
			ThreadID:  in["ThreadId"],
			Celular:   in["Celular"],
			Assunto:   in["Assunto"],
			Resultado: rowsOrEmpty(res),
		},
	})
}

func (h *Handler) writeThreads(w http.ResponseWriter, res *db.Result) {
	rows := rowsOrEmpty(res)
	n := len(rows)
	writeJSON(w, http.StatusOK, envelope{Status: "success", Results: &n, Data: rows})
}

// HandleThreadList lists the threads of the phone in the celular query
// parameter.
func (h *Handler) HandleThreadList(w http.ResponseWriter, r *http.Request) {
	in := params.Input{"celular": r.URL.Query().Get("celular")}
	res, _, ok := h.call(w, r, procs.ThreadList, in, epThreadList)
	if !ok {
		return
	}
	h.writeThreads(w, res)
}

// HandleThreadListAll lists every thread.
func (h *Handler) HandleThreadListAll(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.call(w, r, procs.ThreadListAll, params.Input{}, epThreadListAll)
	if !ok {
		return
	}
	h.writeThreads(w, res)
}

// HandleThreadDelete deletes a thread, optionally only when it belongs to
// the given phone. Success has no body.
func (h *Handler) HandleThreadDelete(w http.ResponseWriter, r *http.Request) {
	in, ok := readBody(w, r, epThreadDelete)
	if !ok {
		return
	}
	if _, _, ok := h.call(w, r, procs.ThreadDelete, in, epThreadDelete); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
