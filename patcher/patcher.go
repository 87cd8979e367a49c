package patcher

import (
	"fmt"
	"iter"
	"slices"

	"github.com/chestworks/seqpatch/debug"
)

// Comparator reports whether the stream element candidate matches the
// pattern element template.
type Comparator[E any] func(template, candidate E) bool

// Pattern is a fixed-length run of element templates.
type Pattern[E any] []E

// Patcher rewrites one stream according to its registered rules.
//
// A Patcher is not safe for concurrent use and holds no state worth keeping
// after Flush; create one per stream.
type Patcher[E any] struct {
	eq    Comparator[E]
	rules []*Rule[E]
	seek  Pattern[E]

	// buf holds input that may still be the start of a match.
	buf     []E
	started bool
	flushed bool
}

// New returns a Patcher comparing elements with eq.
func New[E any](eq Comparator[E]) *Patcher[E] {
	return &Patcher[E]{eq: eq}
}

// AddSeek sets the seek pattern gating the next AddPatch. A seek that was
// never paired with a patch is replaced.
func (p *Patcher[E]) AddSeek(pat Pattern[E]) error {
	if p.started {
		return fmt.Errorf("add seek: %w", ErrStarted)
	}
	if len(pat) == 0 {
		return fmt.Errorf("add seek: empty pattern: %w", ErrInvalidPattern)
	}
	if p.seek != nil && debug.Rules() {
		debug.Logf("seek %v replaced by %v before use\n", p.seek, pat)
	}
	p.seek = slices.Clone(pat)
	return nil
}

// AddPatch registers a rule rewriting matches of pat with action. If a seek
// is pending the rule is gated by it and the seek is cleared. A nil action
// leaves matches unchanged while still counting them.
func (p *Patcher[E]) AddPatch(pat Pattern[E], action Action[E], opts ...PatchOpt) (*Rule[E], error) {
	if p.started {
		return nil, fmt.Errorf("add patch: %w", ErrStarted)
	}
	cfg := &PatchConfig{Repeat: 1}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(pat) == 0 {
		return nil, fmt.Errorf("add patch %q: empty pattern: %w", cfg.Name, ErrInvalidPattern)
	}
	if cfg.Repeat < 1 && cfg.Repeat != Forever {
		return nil, fmt.Errorf("add patch %q: repeat %d: %w", cfg.Name, cfg.Repeat, ErrInvalidPattern)
	}
	r := newRule(len(p.rules), cfg, p.seek, slices.Clone(pat), action)
	p.seek = nil
	p.rules = append(p.rules, r)
	if debug.Rules() {
		debug.Logf("registered %s seek=%d patch=%d\n", r, len(r.seek), len(r.patch))
	}
	return r, nil
}

// From feeds one element and returns the elements that can no longer take
// part in a match, possibly none.
func (p *Patcher[E]) From(e E) ([]E, error) {
	if p.flushed {
		return nil, ErrFlushed
	}
	if !p.started {
		p.started = true
		if p.seek != nil && debug.Rules() {
			debug.Logf("seek %v never paired with a patch\n", p.seek)
		}
	}
	p.buf = append(p.buf, e)
	return p.drain(false), nil
}

// Flush ends the input and returns everything still buffered, after giving
// rules that fit in the remainder a last chance to match. Calling Flush
// again returns nil.
func (p *Patcher[E]) Flush() []E {
	if p.flushed {
		return nil
	}
	p.started = true
	p.flushed = true
	out := p.drain(true)
	p.buf = nil
	return out
}

// Rewrite returns a lazy sequence of the rewritten input, ending with the
// flushed remainder. An error is yielded once, with a zero element, and ends
// the sequence.
func (p *Patcher[E]) Rewrite(in iter.Seq[E]) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		for e := range in {
			out, err := p.From(e)
			if err != nil {
				var zero E
				yield(zero, err)
				return
			}
			for _, o := range out {
				if !yield(o, nil) {
					return
				}
			}
		}
		for _, o := range p.Flush() {
			if !yield(o, nil) {
				return
			}
		}
	}
}

// Apply rewrites the whole of in.
func (p *Patcher[E]) Apply(in []E) ([]E, error) {
	out := make([]E, 0, len(in))
	for e, err := range p.Rewrite(slices.Values(in)) {
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Rules returns the registered rules in registration order.
func (p *Patcher[E]) Rules() []*Rule[E] {
	return slices.Clone(p.rules)
}

// Missed returns the rules that have not fired.
func (p *Patcher[E]) Missed() []*Rule[E] {
	var res []*Rule[E]
	for _, r := range p.rules {
		if r.fired == 0 {
			res = append(res, r)
		}
	}
	return res
}

// Counter returns the applied/total tally so far.
func (p *Patcher[E]) Counter() Counter {
	return Counter{Applied: p.Applied(), Total: p.Total()}
}

// Applied is the number of rules that fired at least once.
func (p *Patcher[E]) Applied() int {
	n := 0
	for _, r := range p.rules {
		if r.fired > 0 {
			n++
		}
	}
	return n
}

// Total is the number of registered rules.
func (p *Patcher[E]) Total() int {
	return len(p.rules)
}

// drain consumes the buffer until it is empty or the head is held by a rule
// waiting for more input. At eof no rule waits.
func (p *Patcher[E]) drain(eof bool) []E {
	var out []E
	for len(p.buf) > 0 {
		r, pending := p.next(eof)
		switch {
		case r != nil:
			out = append(out, p.take(r)...)
		case pending:
			return out
		default:
			out = append(out, p.buf[0])
			p.shift(1)
		}
	}
	return out
}

// next finds the first rule in registration order matching the head of the
// buffer. The second result is true when a rule could still match the head
// given more input, in which case no rule is returned.
func (p *Patcher[E]) next(eof bool) (*Rule[E], bool) {
	n := len(p.buf)
	for _, r := range p.rules {
		if r.state == Exhausted {
			continue
		}
		pat := r.pattern()
		if len(pat) > n {
			if !eof && p.match(pat[:n], p.buf) {
				if debug.Match() {
					debug.Logf("%s holds head, %d/%d matched\n", r, n, len(pat))
				}
				return nil, true
			}
			continue
		}
		if p.match(pat, p.buf[:len(pat)]) {
			return r, false
		}
	}
	return nil, false
}

// take consumes the window matched by r and returns what to emit for it.
func (p *Patcher[E]) take(r *Rule[E]) []E {
	n := len(r.pattern())
	window := slices.Clone(p.buf[:n])
	p.shift(n)
	if r.state == Unarmed {
		r.arm()
		if debug.Seek() {
			debug.Logf("%s armed by %v\n", r, window)
		}
		return window
	}
	out := r.fire(window)
	if debug.Patch() {
		debug.Logf("%s fired, %d in, %d out\n", r, n, len(out))
	}
	return out
}

func (p *Patcher[E]) shift(n int) {
	m := copy(p.buf, p.buf[n:])
	clear(p.buf[m:])
	p.buf = p.buf[:m]
}

func (p *Patcher[E]) match(pat Pattern[E], elts []E) bool {
	for i := range pat {
		if !p.eq(pat[i], elts[i]) {
			return false
		}
	}
	return true
}
