package tokenizer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ModelPricing holds the per-million-token costs for a model in USD.
type ModelPricing struct {
	InputPerMillion  decimal.Decimal
	OutputPerMillion decimal.Decimal
}

func price(in, out string) ModelPricing {
	return ModelPricing{
		InputPerMillion:  decimal.RequireFromString(in),
		OutputPerMillion: decimal.RequireFromString(out),
	}
}

// Pricing maps model identifiers to their token pricing.
var Pricing = map[string]ModelPricing{
	"gpt-3.5-turbo": price("0.50", "1.50"),
	"gpt-4":         price("30.00", "60.00"),
	"gpt-4-turbo":   price("10.00", "30.00"),
	"gpt-4o":        price("2.50", "10.00"),
	"gpt-4o-mini":   price("0.15", "0.60"),
	"gpt-4.1":       price("2.00", "8.00"),
	"gpt-4.1-mini":  price("0.40", "1.60"),
	"o4-mini":       price("1.10", "4.40"),

	"claude-opus-4":     price("15.00", "75.00"),
	"claude-sonnet-4":   price("3.00", "15.00"),
	"claude-sonnet-4-5": price("3.00", "15.00"),
	"claude-haiku-4-5":  price("0.80", "4.00"),
}

var million = decimal.NewFromInt(1_000_000)

// GetPricing returns the pricing for model: an exact match first, then
// the longest known prefix, so "gpt-4o-mini-2024-07-18" prices as
// gpt-4o-mini and not gpt-4o.
func GetPricing(model string) (ModelPricing, bool) {
	lower := strings.ToLower(strings.TrimSpace(model))
	if p, ok := Pricing[lower]; ok {
		return p, true
	}
	if m := longestPrefix(lower, Pricing); m != "" {
		return Pricing[m], true
	}
	return ModelPricing{}, false
}

// EstimateCost returns the USD cost of tokensIn input and tokensOut output
// tokens on model, rounded to six places. ok is false for unpriced models.
func EstimateCost(model string, tokensIn, tokensOut int) (decimal.Decimal, bool) {
	p, ok := GetPricing(model)
	if !ok {
		return decimal.Zero, false
	}
	cost := decimal.NewFromInt(int64(tokensIn)).Mul(p.InputPerMillion).
		Add(decimal.NewFromInt(int64(tokensOut)).Mul(p.OutputPerMillion)).
		Div(million)
	return cost.Round(6), true
}
