// Package insn models instruction listings as streams the patcher can
// rewrite: one Instr per line, an opcode discriminant and an optional
// operand.
package insn

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcode is a lowercase instruction mnemonic such as "ldfld" or "ldc.i4.s".
type Opcode string

// Instr is a single instruction. The label only positions the instruction
// in a listing and takes no part in matching.
type Instr struct {
	Label string
	Op    Opcode
	Arg   Operand
}

// New returns an unlabelled instruction.
func New(op Opcode, arg Operand) Instr {
	return Instr{Op: Opcode(strings.ToLower(string(op))), Arg: arg}
}

// Equivalent reports whether candidate matches the template: the opcodes
// are identical and the template either has no operand or an equal one.
func Equivalent(template, candidate Instr) bool {
	if template.Op != candidate.Op {
		return false
	}
	return !template.Arg.IsSet() || template.Arg.Equal(candidate.Arg)
}

// Exact reports whether a and b have equal opcodes and operands, unset
// operands included.
func Exact(a, b Instr) bool {
	return a.Op == b.Op && a.Arg.Equal(b.Arg)
}

func (i Instr) String() string {
	var b strings.Builder
	if i.Label != "" {
		b.WriteString(i.Label)
		b.WriteString(": ")
	}
	b.WriteString(string(i.Op))
	if i.Arg.IsSet() {
		b.WriteByte(' ')
		b.WriteString(i.Arg.String())
	}
	return b.String()
}

// SyntaxError reports a malformed listing line.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return e.Msg
	}
	return "line " + strconv.Itoa(e.Line) + ": " + e.Msg
}

// Parse decodes one instruction line:
//
//	[label:] opcode [operand] [// comment]
func Parse(line string) (Instr, error) {
	text := strings.TrimSpace(stripComment(line))
	if text == "" {
		return Instr{}, &SyntaxError{Msg: "empty instruction"}
	}
	var res Instr
	head, rest := cut(text)
	if strings.HasSuffix(head, ":") && len(head) > 1 {
		res.Label = head[:len(head)-1]
		head, rest = cut(rest)
		if head == "" {
			return Instr{}, &SyntaxError{Msg: fmt.Sprintf("label %q without instruction", res.Label)}
		}
	}
	res.Op = Opcode(strings.ToLower(head))
	arg, err := ParseOperand(rest)
	if err != nil {
		return Instr{}, err
	}
	res.Arg = arg
	return res, nil
}

// MustParse is Parse for instruction literals known to be valid.
func MustParse(line string) Instr {
	i, err := Parse(line)
	if err != nil {
		panic(fmt.Sprintf("insn.MustParse(%q): %v", line, err))
	}
	return i
}

// MustParseAll parses each line with MustParse.
func MustParseAll(lines ...string) []Instr {
	res := make([]Instr, len(lines))
	for i, l := range lines {
		res[i] = MustParse(l)
	}
	return res
}

func cut(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}

// stripComment removes a trailing // comment outside of quoted strings.
func stripComment(s string) string {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' && quote == '"' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '`':
			quote = c
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			return s[:i]
		}
	}
	return s
}
