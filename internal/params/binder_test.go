package params

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeInput(t *testing.T, body string) Input {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var in Input
	require.NoError(t, dec.Decode(&in))
	return in
}

var tokenSpec = Spec{
	Procedure: "SpContaTokens",
	Mode:      ModeExec,
	Params: []Param{
		{Name: "Celular", Field: "celular", Type: Char(20), Required: true},
		{Name: "PrefResp", Field: "prefResp", Type: Char(5), Required: true},
		{Name: "Pergunta", Field: "pergunta", Type: NVarCharMax(), Required: true},
		{Name: "Resposta", Field: "resposta", Type: NVarCharMax(), Required: true},
		{Name: "NomeIA", Field: "nomeIA", Type: Char(30), Required: true},
		{Name: "DolarCota", Field: "dolarCota", Type: Decimal(10, 6), Required: true},
		{Name: "NomeAgente", Field: "nomeAgente", Type: VarChar(60), Default: DefaultEmpty},
	},
}

func TestBind_AllFieldsInOrder(t *testing.T) {
	in := decodeInput(t, `{"dolarCota": 5.4321, "celular": "5511999999999", "prefResp": "texto",
		"pergunta": "oi", "resposta": "olá", "nomeIA": "gpt-4o"}`)

	req, err := tokenSpec.Bind(in)
	require.NoError(t, err)

	assert.Equal(t, "SpContaTokens", req.Procedure)
	assert.Equal(t, ModeExec, req.Mode)
	names := make([]string, 0, len(req.Args))
	for _, a := range req.Args {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"Celular", "PrefResp", "Pergunta", "Resposta", "NomeIA", "DolarCota", "NomeAgente"}, names)

	v, ok := req.Value("DolarCota")
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("5.4321").Equal(v.(decimal.Decimal)))

	v, _ = req.Value("NomeAgente")
	assert.Equal(t, "", v)
}

func TestBind_ReportsEveryMissingField(t *testing.T) {
	in := decodeInput(t, `{"celular": "5511999999999", "pergunta": null, "resposta": ""}`)

	_, err := tokenSpec.Bind(in)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"prefResp", "pergunta", "resposta", "nomeIA", "dolarCota"}, verr.Missing())
	assert.False(t, verr.HasInvalid())
}

func TestBind_MissingAndInvalidTogether(t *testing.T) {
	in := decodeInput(t, `{"celular": "123456789012345678901", "dolarCota": "abc"}`)

	_, err := tokenSpec.Bind(in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasInvalid())

	codes := map[string]string{}
	for _, is := range verr.Issues {
		codes[is.Field] = is.Code
	}
	assert.Equal(t, CodeInvalid, codes["celular"])
	assert.Equal(t, CodeInvalid, codes["dolarCota"])
	assert.Equal(t, CodeMissing, codes["nomeIA"])
}

func TestBind_OverlongTextRejected(t *testing.T) {
	spec := Spec{Procedure: "spse1cliente", Params: []Param{
		{Name: "Celular", Field: "celular", Type: VarChar(20), Required: true},
	}}

	_, err := spec.Bind(Input{"celular": strings.Repeat("9", 21)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeInvalid, verr.Issues[0].Code)

	req, err := spec.Bind(Input{"celular": strings.Repeat("9", 20)})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("9", 20), req.Args[0].Value)
}

func TestBind_LengthCountsRunes(t *testing.T) {
	spec := Spec{Params: []Param{{Name: "Assunto", Field: "assunto", Type: VarChar(4), Required: true}}}
	_, err := spec.Bind(Input{"assunto": "ção!"})
	assert.NoError(t, err)
}

func TestBind_NVarCharMaxUnbounded(t *testing.T) {
	spec := Spec{Params: []Param{{Name: "Pergunta", Field: "pergunta", Type: NVarCharMax(), Required: true}}}
	_, err := spec.Bind(Input{"pergunta": strings.Repeat("x", 100000)})
	assert.NoError(t, err)
}

func TestBind_Defaults(t *testing.T) {
	spec := Spec{Params: []Param{
		{Name: "A", Field: "a", Type: VarChar(10), Default: DefaultEmpty},
		{Name: "B", Field: "b", Type: VarChar(10), Default: DefaultNull},
		{Name: "C", Field: "c", Type: Int(), Default: DefaultZero},
		{Name: "D", Field: "d", Type: VarChar(10), Default: DefaultOmit},
		{Name: "E", Field: "e", Type: SmallDateTime(), Default: DefaultNull},
	}}

	req, err := spec.Bind(Input{"e": ""})
	require.NoError(t, err)
	require.Len(t, req.Args, 4)

	assert.Equal(t, "", req.Args[0].Value)
	assert.Nil(t, req.Args[1].Value)
	assert.Equal(t, int64(0), req.Args[2].Value)
	assert.Equal(t, "E", req.Args[3].Name)
	assert.Nil(t, req.Args[3].Value)

	_, found := req.Value("D")
	assert.False(t, found)
	assert.Nil(t, req.Get("D"))
	assert.Equal(t, int64(0), req.Get("C"))
}

func TestBind_RequiredZeroIsMissing(t *testing.T) {
	spec := Spec{Params: []Param{
		{Name: "CodOper", Field: "codOper", Type: Int(), Required: true},
		{Name: "DolarCota", Field: "dolarCota", Type: Decimal(10, 6), Required: true},
		{Name: "CodPacote", Field: "codPacote", Type: Int(), Default: DefaultNull},
	}}

	_, err := spec.Bind(decodeInput(t, `{"codOper": 0, "dolarCota": 0.0, "codPacote": 0}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"codOper", "dolarCota"}, verr.Missing())

	req, err := spec.Bind(decodeInput(t, `{"codOper": 3, "dolarCota": 5.1, "codPacote": 0}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), req.Get("CodPacote"), "optional zero is a supplied value")
}

func TestBind_Aliases(t *testing.T) {
	spec := Spec{Params: []Param{
		{Name: "TreadId", Field: "TreadId", Aliases: []string{"ThreadId"}, Type: Char(50), Required: true},
	}}

	req, err := spec.Bind(Input{"ThreadId": "thread_abc"})
	require.NoError(t, err)
	assert.Equal(t, "thread_abc", req.Args[0].Value)

	req, err = spec.Bind(Input{"TreadId": "primary", "ThreadId": "alias"})
	require.NoError(t, err)
	assert.Equal(t, "primary", req.Args[0].Value)

	_, err = spec.Bind(Input{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"TreadId"}, verr.Missing())
}

func TestToInt(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    int64
		wantErr bool
	}{
		{"json integer", json.Number("42"), 42, false},
		{"json integral float", json.Number("42.0"), 42, false},
		{"json fraction", json.Number("4.2"), 0, true},
		{"numeric string", " 17 ", 17, false},
		{"word", "dezessete", 0, true},
		{"float64", float64(7), 7, false},
		{"overflow", json.Number("2147483648"), 0, true},
		{"min int32", json.Number("-2147483648"), -2147483648, false},
		{"bool", true, 0, true},
	}

	for _, tt := range tests {
		got, err := toInt(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		assert.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestToDecimal(t *testing.T) {
	typ := Decimal(10, 6)

	d, err := toDecimal(json.Number("5.12345678"), typ)
	require.NoError(t, err)
	assert.Equal(t, "5.123457", d.StringFixed(6))

	d, err = toDecimal("-0.0000005", typ)
	require.NoError(t, err)
	assert.Equal(t, "-0.000001", d.StringFixed(6))

	_, err = toDecimal(json.Number("10000"), typ)
	assert.Error(t, err, "integer digits beyond p-s must be rejected")

	d, err = toDecimal(json.Number("9999.999999"), typ)
	require.NoError(t, err)
	assert.Equal(t, "9999.999999", d.String())

	_, err = toDecimal("cinco", typ)
	assert.Error(t, err)
}

func TestToSmallDateTime(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Time
		wantErr bool
	}{
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"2024-03-15T10:30", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), false},
		{"2024-03-15 10:30:45", time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC), false},
		{"2024-03-15T10:30:00Z", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), false},
		{"15/03/2024", time.Time{}, true},
		{"1899-12-31", time.Time{}, true},
		{"2079-06-07", time.Time{}, true},
	}

	for _, tt := range tests {
		got, err := toSmallDateTime(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.raw, got)
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Issues: []Issue{
		{Field: "celular", Code: CodeMissing, Message: "campo obrigatório"},
	}}
	assert.Contains(t, err.Error(), "celular")
	assert.Contains(t, err.Error(), CodeMissing)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "VarChar(20)", VarChar(20).String())
	assert.Equal(t, "Decimal(10,6)", Decimal(10, 6).String())
	assert.Equal(t, "NVarChar(MAX)", NVarCharMax().String())
	assert.Equal(t, "exec", ModeExec.String())
}
