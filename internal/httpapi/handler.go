package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/allaspectsdev/procgate/internal/db"
	"github.com/allaspectsdev/procgate/internal/params"
	"github.com/allaspectsdev/procgate/internal/procs"
	"github.com/allaspectsdev/procgate/internal/sqlerr"
	"github.com/allaspectsdev/procgate/internal/tokenizer"
)

// Estimator prices a recorded question/answer exchange.
type Estimator interface {
	Estimate(model, pergunta, resposta string, dolarCota decimal.Decimal) (*tokenizer.Estimate, error)
}

// Readiness reports whether the database can be reached.
type Readiness interface {
	Ready(ctx context.Context) error
}

// Options tune handler behaviour.
type Options struct {
	// ExposeDetails includes the normalized error map in failure bodies.
	ExposeDetails bool
	// UpsertPrecheck reads the customer first to report created vs updated.
	UpsertPrecheck bool
	// Estimator adds token estimates to recorded exchanges; nil disables it.
	Estimator Estimator
	// Readiness backs /health/ready; nil always reports ready.
	Readiness Readiness
}

// Handler serves the gateway endpoints. Each one binds its input against
// the catalog, invokes the procedure and shapes the result.
type Handler struct {
	caller    db.Caller
	catalog   *procs.Catalog
	estimator Estimator
	readiness Readiness
	precheck  bool

	exposeDetails atomic.Bool
}

// NewHandler creates a Handler.
func NewHandler(caller db.Caller, catalog *procs.Catalog, opts Options) *Handler {
	h := &Handler{
		caller:    caller,
		catalog:   catalog,
		estimator: opts.Estimator,
		readiness: opts.Readiness,
		precheck:  opts.UpsertPrecheck,
	}
	h.exposeDetails.Store(opts.ExposeDetails)
	return h
}

// SetExposeDetails switches error detail exposure at runtime.
func (h *Handler) SetExposeDetails(v bool) {
	h.exposeDetails.Store(v)
}

// call binds in for k and invokes the procedure. On failure it writes the
// response for the endpoint and returns ok=false.
func (h *Handler) call(w http.ResponseWriter, r *http.Request, k procs.Key, in params.Input, ep endpoint) (*db.Result, *params.Request, bool) {
	req, err := h.catalog.Bind(k, in)
	if err != nil {
		h.fail(w, r, ep, err)
		return nil, nil, false
	}
	res, err := h.caller.Invoke(r.Context(), req)
	if err != nil {
		h.fail(w, r, ep, err)
		return nil, req, false
	}
	return res, req, true
}

// fail classifies err and writes the failure envelope.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, ep endpoint, err error) {
	logger := zerolog.Ctx(r.Context())

	var verr *params.ValidationError
	if errors.As(err, &verr) {
		f := ep.invalid
		if len(verr.Missing()) == 0 {
			f.msg, f.hint = invalidInput.msg, invalidInput.hint
		}
		logger.Debug().Interface("issues", verr.Issues).Msg("request rejected")
		writeJSON(w, http.StatusBadRequest, envelope{
			Status:     f.status,
			Error:      f.msg,
			Details:    verr.Issues,
			Suggestion: f.hint,
		})
		return
	}

	msgs := sqlerr.Normalize(err)

	var cerr *db.ConnectionError
	f, code := ep.failed, ep.failedCode
	if errors.As(err, &cerr) {
		f, code = unavailable, http.StatusServiceUnavailable
		if ep.failed.status != "" {
			f.status = "error"
		}
	}

	logger.Error().Err(err).Object("sql_errors", msgs).Int("status", code).Msg(f.msg)

	env := envelope{Status: f.status, Error: f.msg, Suggestion: f.hint}
	if h.exposeDetails.Load() {
		env.Details = msgs
	}
	writeJSON(w, code, env)
}

// decodeBody reads a JSON object body. An empty body is an empty input.
func decodeBody(r *http.Request) (params.Input, error) {
	in := params.Input{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return in, nil
}

// readBody decodes the body or writes a 400 and returns ok=false.
func readBody(w http.ResponseWriter, r *http.Request, ep endpoint) (params.Input, bool) {
	in, err := decodeBody(r)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, envelope{
			Status:     ep.invalid.status,
			Error:      "Requisição muito grande",
			Suggestion: fmt.Sprintf("O corpo deve ter até %d bytes.", tooLarge.Limit),
		})
		return nil, false
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("malformed body")
		writeJSON(w, http.StatusBadRequest, envelope{
			Status:     ep.invalid.status,
			Error:      malformedBody.msg,
			Suggestion: malformedBody.hint,
		})
		return nil, false
	}
	return in, true
}
