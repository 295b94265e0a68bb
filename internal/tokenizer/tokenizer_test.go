package tokenizer

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestGetEncoding_KnownModels(t *testing.T) {
	tok := New()
	tests := map[string]string{
		"gpt-4":                  encCL100K,
		"gpt-4o":                 encO200K,
		"GPT-4o-mini":            encO200K,
		"gpt-4o-mini-2024-07-18": encO200K,
		"gpt-4-0613":             encCL100K,
		"claude-sonnet-4-5":      encCL100K,
	}
	for model, want := range tests {
		if got := tok.GetEncoding(model); got != want {
			t.Errorf("GetEncoding(%q) = %q; want %q", model, got, want)
		}
	}
}

func TestGetEncoding_Cl100kForUnknownModels(t *testing.T) {
	tok := New()
	for _, model := range []string{"some-random-model", "llama-3-70b", ""} {
		if got := tok.GetEncoding(model); got != encCL100K {
			t.Errorf("GetEncoding(%q) = %q; want %q", model, got, encCL100K)
		}
	}
}

func TestGetPricing_LongestPrefixWins(t *testing.T) {
	p, ok := GetPricing("gpt-4o-mini-2024-07-18")
	if !ok {
		t.Fatal("expected pricing for versioned gpt-4o-mini")
	}
	if !p.InputPerMillion.Equal(decimal.RequireFromString("0.15")) {
		t.Errorf("input price: got %s, want 0.15", p.InputPerMillion)
	}

	if _, ok := GetPricing("modelo-local"); ok {
		t.Error("unknown model should have no pricing")
	}
}

func TestEstimateCost(t *testing.T) {
	cost, ok := EstimateCost("gpt-4o", 1000, 500)
	if !ok {
		t.Fatal("gpt-4o should be priced")
	}
	// 1000*2.50/1e6 + 500*10/1e6 = 0.0075
	if !cost.Equal(decimal.RequireFromString("0.0075")) {
		t.Errorf("cost: got %s, want 0.0075", cost)
	}

	if _, ok := EstimateCost("desconhecido", 10, 10); ok {
		t.Error("unpriced model reported a cost")
	}
}

func TestEstimateFrom_ConvertsToBRL(t *testing.T) {
	e := estimateFrom("gpt-4o", encO200K, 1000, 500, decimal.RequireFromString("5.000000"))
	if e.CustoUSD == nil || e.CustoBRL == nil {
		t.Fatal("expected both costs")
	}
	if !e.CustoBRL.Equal(decimal.RequireFromString("0.0375")) {
		t.Errorf("BRL cost: got %s, want 0.0375", e.CustoBRL)
	}
	if e.TokensPergunta != 1000 || e.TokensResposta != 500 {
		t.Errorf("counts: got %d/%d", e.TokensPergunta, e.TokensResposta)
	}
}

func TestEstimateFrom_UnpricedOmitsCosts(t *testing.T) {
	e := estimateFrom("modelo-local", encCL100K, 3, 4, decimal.NewFromInt(5))
	if e.CustoUSD != nil || e.CustoBRL != nil {
		t.Errorf("unpriced model should carry no costs, got %v / %v", e.CustoUSD, e.CustoBRL)
	}
}
