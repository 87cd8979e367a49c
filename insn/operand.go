package insn

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the kind of value an operand carries.
type Kind int

const (
	None Kind = iota
	Int
	Float
	String
	Symbol
)

var kindNames = [...]string{"none", "int", "float", "string", "symbol"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Operand is the optional payload of an instruction. Text keeps the operand
// as written so unmodified instructions print back unchanged; equality uses
// the decoded value.
type Operand struct {
	Kind  Kind
	Text  string
	Int   int64
	Float float64
	Str   string
}

// IntArg returns an integer operand.
func IntArg(n int64) Operand {
	return Operand{Kind: Int, Int: n, Text: strconv.FormatInt(n, 10)}
}

// FloatArg returns a floating point operand.
func FloatArg(f float64) Operand {
	return Operand{Kind: Float, Float: f, Text: formatFloat(f)}
}

// StrArg returns a string literal operand.
func StrArg(s string) Operand {
	return Operand{Kind: String, Str: s, Text: strconv.Quote(s)}
}

// Sym returns a symbol operand: a member, type or label reference.
func Sym(s string) Operand {
	return Operand{Kind: Symbol, Str: s, Text: s}
}

// IsSet reports whether the operand carries a value. An unset operand in a
// pattern template matches any operand.
func (o Operand) IsSet() bool {
	return o.Kind != None
}

// Equal compares decoded values. Integers written in different bases are
// equal.
func (o Operand) Equal(x Operand) bool {
	if o.Kind != x.Kind {
		return false
	}
	switch o.Kind {
	case None:
		return true
	case Int:
		return o.Int == x.Int
	case Float:
		return o.Float == x.Float || (math.IsNaN(o.Float) && math.IsNaN(x.Float))
	default:
		return o.Str == x.Str
	}
}

func (o Operand) String() string {
	if o.Text != "" || o.Kind == None {
		return o.Text
	}
	switch o.Kind {
	case Int:
		return strconv.FormatInt(o.Int, 10)
	case Float:
		return formatFloat(o.Float)
	case String:
		return strconv.Quote(o.Str)
	default:
		return o.Str
	}
}

// formatFloat keeps a decimal point so the text reparses as a float.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eEnN") {
		return s
	}
	return s + ".0"
}

// ParseOperand decodes operand text. Quoted text is a string, text that
// parses as a number is a number, anything else is a symbol.
func ParseOperand(text string) (Operand, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Operand{}, nil
	}
	if text[0] == '"' || text[0] == '`' {
		s, err := strconv.Unquote(text)
		if err != nil {
			return Operand{}, &SyntaxError{Msg: "bad string operand " + text}
		}
		return Operand{Kind: String, Str: s, Text: text}, nil
	}
	if looksNumeric(text) {
		if n, err := strconv.ParseInt(text, 0, 64); err == nil {
			return Operand{Kind: Int, Int: n, Text: text}, nil
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return Operand{Kind: Float, Float: f, Text: text}, nil
		}
	}
	return Operand{Kind: Symbol, Str: text, Text: text}, nil
}

func looksNumeric(s string) bool {
	switch s {
	case "Inf", "+Inf", "-Inf", "NaN":
		return true
	}
	c := s[0]
	if c == '-' || c == '+' {
		if len(s) == 1 {
			return false
		}
		c = s[1]
	}
	return (c >= '0' && c <= '9') || c == '.'
}
