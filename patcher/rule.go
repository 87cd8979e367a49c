package patcher

import (
	"fmt"
	"strconv"
)

// Forever is the repeat budget of a rule that may fire any number of times.
const Forever = -1

// State is the lifecycle position of a rule within one pass.
type State int

const (
	// Unarmed rules are waiting for their seek pattern.
	Unarmed State = iota
	// Armed rules test their patch pattern.
	Armed
	// Exhausted rules have spent their repeat budget and are never tested again.
	Exhausted
)

func (s State) String() string {
	switch s {
	case Unarmed:
		return "unarmed"
	case Armed:
		return "armed"
	case Exhausted:
		return "exhausted"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// PatchConfig holds the per-rule settings given to AddPatch.
type PatchConfig struct {
	Name   string
	Repeat int
}

type PatchOpt func(*PatchConfig)

// Repeat sets how many times the rule may fire. The default is 1.
func Repeat(n int) PatchOpt {
	return func(c *PatchConfig) { c.Repeat = n }
}

// RepeatForever lets the rule fire at every match.
func RepeatForever() PatchOpt {
	return Repeat(Forever)
}

// Named attaches a name used in traces and diagnostics.
func Named(name string) PatchOpt {
	return func(c *PatchConfig) { c.Name = name }
}

// Rule is a registered (seek, patch, action, repeat) tuple together with its
// progress through the current pass.
type Rule[E any] struct {
	index  int
	name   string
	seek   Pattern[E]
	patch  Pattern[E]
	action Action[E]
	repeat int

	state State
	fired int
}

func newRule[E any](index int, cfg *PatchConfig, seek, patch Pattern[E], action Action[E]) *Rule[E] {
	r := &Rule[E]{
		index:  index,
		name:   cfg.Name,
		seek:   seek,
		patch:  patch,
		action: action,
		repeat: cfg.Repeat,
		state:  Armed,
	}
	if len(seek) != 0 {
		r.state = Unarmed
	}
	return r
}

// Name returns the rule name, or its registration position when unnamed.
func (r *Rule[E]) Name() string {
	if r.name != "" {
		return r.name
	}
	return fmt.Sprintf("rule %d", r.index+1)
}

// Index is the registration position of the rule, starting at 0.
func (r *Rule[E]) Index() int { return r.index }

func (r *Rule[E]) State() State { return r.state }

// Fired is how many times the rule's action ran in this pass.
func (r *Rule[E]) Fired() int { return r.fired }

// Repeat is the rule's budget, or Forever.
func (r *Rule[E]) Repeat() int { return r.repeat }

// Seeks reports whether the rule is gated by a seek pattern.
func (r *Rule[E]) Seeks() bool { return len(r.seek) != 0 }

func (r *Rule[E]) String() string {
	rep := "forever"
	if r.repeat != Forever {
		rep = strconv.Itoa(r.repeat)
	}
	return fmt.Sprintf("%s [%s %d/%s]", r.Name(), r.state, r.fired, rep)
}

// pattern is the pattern the rule is currently waiting on.
func (r *Rule[E]) pattern() Pattern[E] {
	if r.state == Unarmed {
		return r.seek
	}
	return r.patch
}

func (r *Rule[E]) arm() {
	if r.state == Unarmed {
		r.state = Armed
	}
}

// fire runs the action on an owned window and spends one unit of budget.
func (r *Rule[E]) fire(window []E) []E {
	out := window
	if r.action != nil {
		out = r.action(window)
	}
	r.fired++
	if r.repeat != Forever && r.fired >= r.repeat {
		r.state = Exhausted
	}
	return out
}
