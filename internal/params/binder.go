// Package params binds loosely typed request input onto the typed
// parameter list of a stored procedure.
package params

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Input is the request data a procedure call is built from: a decoded JSON
// body (numbers as json.Number), path values or query values.
type Input map[string]any

// Param maps one input field onto one procedure parameter.
type Param struct {
	Name     string   // procedure parameter name, without "@"
	Field    string   // input field name
	Aliases  []string // alternative input field names, tried in order
	Type     Type
	Required bool
	Default  Default
}

// Spec is the full parameter specification of one procedure call.
type Spec struct {
	Procedure string
	Mode      Mode
	Params    []Param
}

// Arg is a bound parameter value. Value is nil (NULL), string, int64,
// decimal.Decimal or time.Time.
type Arg struct {
	Name  string
	Type  Type
	Value any
}

// Request is a validated, typed procedure call.
type Request struct {
	Procedure string
	Mode      Mode
	Args      []Arg
}

// Value returns the bound value of the named parameter.
func (r *Request) Value(name string) (any, bool) {
	for _, a := range r.Args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// Get returns the bound value of the named parameter, or nil when it was
// not bound.
func (r *Request) Get(name string) any {
	v, _ := r.Value(name)
	return v
}

// smalldatetime range accepted by SQL Server.
var (
	minSmallDateTime = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	maxSmallDateTime = time.Date(2079, 6, 6, 23, 59, 0, 0, time.UTC)
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

var validate = validator.New()

// Bind validates in against the spec and returns the typed request. Every
// missing required field and every malformed value is reported in a single
// *ValidationError. Args follow the declaration order of s.Params.
func (s Spec) Bind(in Input) (*Request, error) {
	req := &Request{Procedure: s.Procedure, Mode: s.Mode, Args: make([]Arg, 0, len(s.Params))}
	var issues []Issue

	for _, p := range s.Params {
		raw, field := lookup(in, p)
		if isMissing(raw) || (p.Required && isZeroNumber(raw)) {
			if p.Required {
				issues = append(issues, Issue{Field: p.Field, Code: CodeMissing, Message: "campo obrigatório"})
				continue
			}
			if p.Default == DefaultOmit {
				continue
			}
			req.Args = append(req.Args, Arg{Name: p.Name, Type: p.Type, Value: defaultValue(p.Type, p.Default)})
			continue
		}

		v, err := convert(raw, p.Type)
		if err != nil {
			issues = append(issues, Issue{Field: field, Code: CodeInvalid, Message: err.Error()})
			continue
		}
		req.Args = append(req.Args, Arg{Name: p.Name, Type: p.Type, Value: v})
	}

	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return req, nil
}

// lookup returns the first present value among the field and its aliases,
// together with the name it was found under.
func lookup(in Input, p Param) (any, string) {
	if v, ok := in[p.Field]; ok && !isMissing(v) {
		return v, p.Field
	}
	for _, a := range p.Aliases {
		if v, ok := in[a]; ok && !isMissing(v) {
			return v, a
		}
	}
	return nil, p.Field
}

// isMissing treats absent, null and empty-string values as not supplied.
// Zero and false are supplied values for optional fields.
func isMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case json.Number:
		return x == ""
	}
	return false
}

// isZeroNumber reports a numeric zero. Required numeric fields such as
// codOper or dolarCota reject it like an absent value.
func isZeroNumber(v any) bool {
	switch x := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return err == nil && d.IsZero()
	case float64:
		return x == 0
	case int:
		return x == 0
	case int64:
		return x == 0
	}
	return false
}

func defaultValue(t Type, d Default) any {
	switch d {
	case DefaultEmpty:
		if t.IsText() {
			return ""
		}
	case DefaultZero:
		switch t.Kind {
		case KindInt:
			return int64(0)
		case KindDecimal:
			return decimal.Zero
		}
	}
	return nil
}

func convert(raw any, t Type) (any, error) {
	switch t.Kind {
	case KindVarChar, KindChar, KindNVarCharMax:
		return toText(raw, t)
	case KindInt:
		return toInt(raw)
	case KindDecimal:
		return toDecimal(raw, t)
	case KindSmallDateTime:
		return toSmallDateTime(raw)
	}
	return nil, fmt.Errorf("tipo não suportado %s", t)
}

func toText(raw any, t Type) (string, error) {
	var s string
	switch x := raw.(type) {
	case string:
		s = x
	case json.Number:
		s = x.String()
	case bool:
		s = strconv.FormatBool(x)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	default:
		return "", fmt.Errorf("esperado texto")
	}

	if t.Kind != KindNVarCharMax && t.Length > 0 {
		if err := validate.Var(s, "max="+strconv.Itoa(t.Length)); err != nil {
			return "", fmt.Errorf("excede %d caracteres", t.Length)
		}
	}
	return s, nil
}

func toInt(raw any) (int64, error) {
	var n int64
	switch x := raw.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			f, ferr := x.Float64()
			if ferr != nil || f != math.Trunc(f) {
				return 0, fmt.Errorf("número inteiro inválido")
			}
			i = int64(f)
		}
		n = i
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("número inteiro inválido")
		}
		n = int64(x)
	case int:
		n = int64(x)
	case int64:
		n = x
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("número inteiro inválido")
		}
		n = i
	default:
		return 0, fmt.Errorf("número inteiro inválido")
	}

	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("fora do intervalo de INT")
	}
	return n, nil
}

func toDecimal(raw any, t Type) (decimal.Decimal, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch x := raw.(type) {
	case json.Number:
		d, err = decimal.NewFromString(x.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(x))
	case float64:
		d = decimal.NewFromFloat(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	default:
		err = fmt.Errorf("unsupported %T", raw)
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("valor decimal inválido")
	}

	d = d.Round(int32(t.Scale))
	limit := decimal.New(1, int32(t.Precision-t.Scale))
	if d.Abs().GreaterThanOrEqual(limit) {
		return decimal.Decimal{}, fmt.Errorf("excede a precisão Decimal(%d,%d)", t.Precision, t.Scale)
	}
	return d, nil
}

func toSmallDateTime(raw any) (time.Time, error) {
	var ts time.Time
	switch x := raw.(type) {
	case time.Time:
		ts = x
	case string:
		s := strings.TrimSpace(x)
		parsed := false
		for _, layout := range dateLayouts {
			if v, err := time.Parse(layout, s); err == nil {
				ts, parsed = v, true
				break
			}
		}
		if !parsed {
			return time.Time{}, fmt.Errorf("data inválida")
		}
	default:
		return time.Time{}, fmt.Errorf("data inválida")
	}

	if ts.Before(minSmallDateTime) || ts.After(maxSmallDateTime) {
		return time.Time{}, fmt.Errorf("data fora do intervalo de SMALLDATETIME")
	}
	return ts, nil
}
