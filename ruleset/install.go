package ruleset

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chestworks/seqpatch/insn"
	"github.com/chestworks/seqpatch/patcher"
)

// step transforms the current window. env describes the window as matched.
type step func(cur []insn.Instr, env map[string]any) ([]insn.Instr, error)

func (s *Step) compile() (step, error) {
	n := 0
	for _, set := range []bool{s.Drop != nil, s.Keep != nil, s.Append != nil, s.Prepend != nil, s.Replace != nil, s.Delete} {
		if set {
			n++
		}
	}
	if n != 1 {
		return nil, fmt.Errorf("expected exactly one of drop, keep, append, prepend, replace, delete; got %d", n)
	}
	switch {
	case s.Drop != nil:
		if *s.Drop < 0 {
			return nil, fmt.Errorf("drop %d: negative count", *s.Drop)
		}
		drop := patcher.DropLast[insn.Instr](*s.Drop)
		return func(cur []insn.Instr, _ map[string]any) ([]insn.Instr, error) {
			return drop(cur), nil
		}, nil
	case s.Keep != nil:
		keep := *s.Keep
		if keep < 0 {
			return nil, fmt.Errorf("keep %d: negative count", keep)
		}
		return func(cur []insn.Instr, _ map[string]any) ([]insn.Instr, error) {
			return cur[:min(keep, len(cur))], nil
		}, nil
	case s.Delete:
		return func([]insn.Instr, map[string]any) ([]insn.Instr, error) {
			return nil, nil
		}, nil
	}
	var (
		srcs []string
		join func(cur, elts []insn.Instr) []insn.Instr
	)
	switch {
	case s.Append != nil:
		srcs = s.Append
		join = func(cur, elts []insn.Instr) []insn.Instr { return append(cur, elts...) }
	case s.Prepend != nil:
		srcs = s.Prepend
		join = func(cur, elts []insn.Instr) []insn.Instr { return append(elts, cur...) }
	default:
		srcs = s.Replace
		join = func(_, elts []insn.Instr) []insn.Instr { return elts }
	}
	tmpls := make([]*template, len(srcs))
	for i, src := range srcs {
		t, err := compileTemplate(src)
		if err != nil {
			return nil, err
		}
		tmpls[i] = t
	}
	return func(cur []insn.Instr, env map[string]any) ([]insn.Instr, error) {
		elts := make([]insn.Instr, len(tmpls))
		for i, t := range tmpls {
			in, err := t.instr(env)
			if err != nil {
				return nil, err
			}
			elts[i] = in
		}
		return join(cur, elts), nil
	}, nil
}

// Binding ties the rules of one or more targets to a single patcher run.
// Errors raised by actions while the stream is processed are collected
// here; the site whose action failed is left unchanged.
//
// Like the patcher it serves, a Binding belongs to one goroutine.
type Binding struct {
	method string
	errs   []error
}

// Err returns the action errors raised so far, joined.
func (b *Binding) Err() error {
	return errors.Join(b.errs...)
}

func (b *Binding) fail(err error) {
	b.errs = append(b.errs, err)
}

// NewBinding returns a binding for one run over method.
func NewBinding(method string) *Binding {
	return &Binding{method: method}
}

// Install registers the target's rules on p, in order, with each rule's
// seek paired to its match. Expressions in actions see:
//
//	match   the matched window: op, arg, label, kind and int/float/str
//	fired   how many times the rule fired before
//	rule    the rule name
//	method  the method being patched
func (t *Target) Install(p *patcher.Patcher[insn.Instr], b *Binding) error {
	for i, r := range t.Rules {
		name := t.RuleName(i)
		if len(r.seek) != 0 {
			if err := p.AddSeek(r.seek); err != nil {
				return fmt.Errorf("target %q %s: %w", t.Method, r.Label(i), err)
			}
		}
		opts := []patcher.PatchOpt{patcher.Named(name), patcher.Repeat(r.repeat)}
		if _, err := p.AddPatch(r.match, r.action(name, b), opts...); err != nil {
			return fmt.Errorf("target %q %s: %w", t.Method, r.Label(i), err)
		}
	}
	return nil
}

func (r *Rule) action(name string, b *Binding) patcher.Action[insn.Instr] {
	if len(r.steps) == 0 {
		return nil
	}
	fired := 0
	return func(m []insn.Instr) []insn.Instr {
		env := map[string]any{
			"match":  matchEnv(m),
			"fired":  fired,
			"rule":   name,
			"method": b.method,
		}
		fired++
		cur := slices.Clone(m)
		for i, s := range r.steps {
			var err error
			cur, err = s(cur, env)
			if err != nil {
				b.fail(fmt.Errorf("%s action %d: %w", name, i+1, err))
				return m
			}
		}
		return cur
	}
}
