package params

import "fmt"

// Kind is the semantic SQL type of a procedure parameter.
type Kind int

const (
	KindVarChar Kind = iota
	KindChar
	KindNVarCharMax
	KindInt
	KindDecimal
	KindSmallDateTime
)

// Type describes a parameter's SQL type and its width where relevant.
type Type struct {
	Kind      Kind
	Length    int
	Precision int
	Scale     int
}

// VarChar returns a variable-length text type of at most n characters.
func VarChar(n int) Type { return Type{Kind: KindVarChar, Length: n} }

// Char returns a fixed-width text type of n characters.
func Char(n int) Type { return Type{Kind: KindChar, Length: n} }

// NVarCharMax returns an unbounded unicode text type.
func NVarCharMax() Type { return Type{Kind: KindNVarCharMax} }

// Int returns a 32-bit integer type.
func Int() Type { return Type{Kind: KindInt} }

// Decimal returns a fixed-point type with precision p and scale s.
func Decimal(p, s int) Type { return Type{Kind: KindDecimal, Precision: p, Scale: s} }

// SmallDateTime returns the minute-precision date/time type.
func SmallDateTime() Type { return Type{Kind: KindSmallDateTime} }

// IsText reports whether values of this type are strings.
func (t Type) IsText() bool {
	return t.Kind == KindVarChar || t.Kind == KindChar || t.Kind == KindNVarCharMax
}

func (t Type) String() string {
	switch t.Kind {
	case KindVarChar:
		return fmt.Sprintf("VarChar(%d)", t.Length)
	case KindChar:
		return fmt.Sprintf("Char(%d)", t.Length)
	case KindNVarCharMax:
		return "NVarChar(MAX)"
	case KindInt:
		return "Int"
	case KindDecimal:
		return fmt.Sprintf("Decimal(%d,%d)", t.Precision, t.Scale)
	case KindSmallDateTime:
		return "SmallDateTime"
	}
	return "Unknown"
}

// Default says what to bind when an optional field is missing.
type Default int

const (
	// DefaultNull binds SQL NULL.
	DefaultNull Default = iota
	// DefaultEmpty binds the empty string.
	DefaultEmpty
	// DefaultZero binds 0.
	DefaultZero
	// DefaultOmit does not bind the parameter, so the procedure's own
	// default applies.
	DefaultOmit
)

// Mode selects how a procedure call is executed.
type Mode int

const (
	// ModeQuery reads every result set the procedure returns.
	ModeQuery Mode = iota
	// ModeExec only reports the number of rows affected.
	ModeExec
)

func (m Mode) String() string {
	if m == ModeExec {
		return "exec"
	}
	return "query"
}
