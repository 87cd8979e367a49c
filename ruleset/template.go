package ruleset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chestworks/seqpatch/insn"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// template is an instruction line whose operand text may be computed from
// the matched window.
type template struct {
	src   string
	fixed *insn.Instr
	parts []part
}

type part struct {
	lit  string
	prog *vm.Program
}

// envShape declares the variables visible to expressions, for type checking.
var envShape = map[string]any{
	"match":  []map[string]any{},
	"fired":  0,
	"rule":   "",
	"method": "",
}

func compileTemplate(src string) (*template, error) {
	t := &template{src: src}
	if !strings.Contains(src, "${") {
		in, err := insn.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", src, err)
		}
		t.fixed = &in
		return t, nil
	}
	rest := src
	for rest != "" {
		i := strings.Index(rest, "${")
		if i < 0 {
			t.parts = append(t.parts, part{lit: rest})
			break
		}
		if i > 0 {
			t.parts = append(t.parts, part{lit: rest[:i]})
		}
		body := rest[i+2:]
		j := closeBrace(body)
		if j < 0 {
			return nil, fmt.Errorf("%q: unterminated ${", src)
		}
		code := strings.TrimSpace(body[:j])
		if code == "" {
			return nil, fmt.Errorf("%q: empty expression", src)
		}
		prog, err := expr.Compile(code, expr.Env(envShape))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", src, err)
		}
		t.parts = append(t.parts, part{prog: prog})
		rest = body[j+1:]
	}
	return t, nil
}

// closeBrace returns the index of the brace ending the expression at the
// start of s, or -1. Braces inside quoted strings or nested literals do not
// count.
func closeBrace(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' && quote != '`' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// instr renders the template against env and parses the result.
func (t *template) instr(env map[string]any) (insn.Instr, error) {
	if t.fixed != nil {
		return *t.fixed, nil
	}
	var b strings.Builder
	for _, p := range t.parts {
		if p.prog == nil {
			b.WriteString(p.lit)
			continue
		}
		v, err := expr.Run(p.prog, env)
		if err != nil {
			return insn.Instr{}, fmt.Errorf("%q: %w", t.src, err)
		}
		b.WriteString(exprString(v))
	}
	in, err := insn.Parse(b.String())
	if err != nil {
		return insn.Instr{}, fmt.Errorf("%q rendered as %q: %w", t.src, b.String(), err)
	}
	return in, nil
}

func exprString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// matchEnv is the expression view of a matched window.
func matchEnv(window []insn.Instr) []map[string]any {
	res := make([]map[string]any, len(window))
	for i, in := range window {
		m := map[string]any{
			"label": in.Label,
			"op":    string(in.Op),
			"arg":   in.Arg.String(),
			"kind":  in.Arg.Kind.String(),
		}
		switch in.Arg.Kind {
		case insn.Int:
			m["int"] = in.Arg.Int
		case insn.Float:
			m["float"] = in.Arg.Float
		case insn.String, insn.Symbol:
			m["str"] = in.Arg.Str
		}
		res[i] = m
	}
	return res
}
