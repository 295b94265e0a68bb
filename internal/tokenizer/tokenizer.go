// Package tokenizer estimates token counts and cost for recorded AI
// exchanges.
package tokenizer

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	"github.com/shopspring/decimal"
)

const (
	encCL100K = "cl100k_base"
	encO200K  = "o200k_base"
)

// Tokenizer counts tokens with tiktoken encodings. Encodings are loaded
// once and cached.
type Tokenizer struct {
	cl100kOnce sync.Once
	cl100kEnc  *tiktoken.Tiktoken
	cl100kErr  error

	o200kOnce sync.Once
	o200kEnc  *tiktoken.Tiktoken
	o200kErr  error
}

// modelEncodings maps model names to their tiktoken encoding.
var modelEncodings = map[string]string{
	"gpt-3.5-turbo": encCL100K,
	"gpt-4":         encCL100K,
	"gpt-4-turbo":   encCL100K,
	"gpt-4o":        encO200K,
	"gpt-4o-mini":   encO200K,
	"gpt-4.1":       encO200K,
	"gpt-4.1-mini":  encO200K,
	"o1":            encO200K,
	"o3":            encO200K,
	"o4-mini":       encO200K,

	// Claude has no public tokenizer; cl100k is a close approximation.
	"claude-opus-4":     encCL100K,
	"claude-sonnet-4":   encCL100K,
	"claude-sonnet-4-5": encCL100K,
	"claude-haiku-4-5":  encCL100K,
}

// New creates a Tokenizer.
func New() *Tokenizer {
	return &Tokenizer{}
}

// GetEncoding returns the encoding name for model. Versioned names match
// their longest known prefix; unknown models default to cl100k_base.
func (t *Tokenizer) GetEncoding(model string) string {
	lower := strings.ToLower(strings.TrimSpace(model))
	if enc, ok := modelEncodings[lower]; ok {
		return enc
	}
	if m := longestPrefix(lower, modelEncodings); m != "" {
		return modelEncodings[m]
	}
	return encCL100K
}

func (t *Tokenizer) getEncoder(model string) (*tiktoken.Tiktoken, error) {
	switch t.GetEncoding(model) {
	case encO200K:
		t.o200kOnce.Do(func() {
			t.o200kEnc, t.o200kErr = tiktoken.GetEncoding(encO200K)
		})
		return t.o200kEnc, t.o200kErr
	default:
		t.cl100kOnce.Do(func() {
			t.cl100kEnc, t.cl100kErr = tiktoken.GetEncoding(encCL100K)
		})
		return t.cl100kEnc, t.cl100kErr
	}
}

// CountTokens counts the tokens in text for model.
func (t *Tokenizer) CountTokens(model, text string) (int, error) {
	enc, err := t.getEncoder(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// Estimate is the token count and cost of one question/answer exchange.
// Costs are nil when the model has no known pricing.
type Estimate struct {
	Encoding       string           `json:"encoding"`
	TokensPergunta int              `json:"tokensPergunta"`
	TokensResposta int              `json:"tokensResposta"`
	CustoUSD       *decimal.Decimal `json:"custoUSD,omitempty"`
	CustoBRL       *decimal.Decimal `json:"custoBRL,omitempty"`
}

// Estimate counts pergunta as input and resposta as output for model and
// prices the exchange in USD and, with dolarCota, in BRL.
func (t *Tokenizer) Estimate(model, pergunta, resposta string, dolarCota decimal.Decimal) (*Estimate, error) {
	in, err := t.CountTokens(model, pergunta)
	if err != nil {
		return nil, err
	}
	out, err := t.CountTokens(model, resposta)
	if err != nil {
		return nil, err
	}
	return estimateFrom(model, t.GetEncoding(model), in, out, dolarCota), nil
}

func estimateFrom(model, encoding string, in, out int, dolarCota decimal.Decimal) *Estimate {
	e := &Estimate{Encoding: encoding, TokensPergunta: in, TokensResposta: out}
	usd, ok := EstimateCost(model, in, out)
	if !ok {
		return e
	}
	brl := usd.Mul(dolarCota).Round(6)
	e.CustoUSD = &usd
	e.CustoBRL = &brl
	return e
}

func longestPrefix[V any](s string, table map[string]V) string {
	best := ""
	for name := range table {
		if strings.HasPrefix(s, name) && len(name) > len(best) {
			best = name
		}
	}
	return best
}
