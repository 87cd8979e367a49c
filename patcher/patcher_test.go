package patcher

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// eq treats a "*" template as matching anything.
func eq(template, candidate string) bool {
	return template == "*" || template == candidate
}

func seq(s string) []string {
	return strings.Fields(s)
}

type patchTest struct {
	name    string
	rules   func(t *testing.T, p *Patcher[string])
	in      string
	out     string
	counter Counter
}

func addSeek(t *testing.T, p *Patcher[string], pat string) {
	t.Helper()
	if err := p.AddSeek(seq(pat)); err != nil {
		t.Fatalf("AddSeek(%q): %v", pat, err)
	}
}

func addPatch(t *testing.T, p *Patcher[string], pat string, a Action[string], opts ...PatchOpt) *Rule[string] {
	t.Helper()
	r, err := p.AddPatch(seq(pat), a, opts...)
	if err != nil {
		t.Fatalf("AddPatch(%q): %v", pat, err)
	}
	return r
}

var patchTests = []patchTest{
	{
		name: "insert inside window",
		rules: func(t *testing.T, p *Patcher[string]) {
			addPatch(t, p, "B C", func(m []string) []string {
				return []string{m[0], "X", m[1]}
			})
		},
		in:      "A B C D",
		out:     "A B X C D",
		counter: Counter{Applied: 1, Total: 1},
	},
	{
		name: "second occurrence untouched",
		rules: func(t *testing.T, p *Patcher[string]) {
			addPatch(t, p, "B C", func(m []string) []string {
				return []string{m[0], "X", m[1]}
			})
		},
		in:      "A B C B C D",
		out:     "A B X C B C D",
		counter: Counter{Applied: 1, Total: 1},
	},
	{
		name: "seek arms patch",
		rules: func(t *testing.T, p *Patcher[string]) {
			addSeek(t, p, "S")
			addPatch(t, p, "P", Delete[string]())
		},
		in:      "P S P",
		out:     "P S",
		counter: Counter{Applied: 1, Total: 1},
	},
	{
		name:  "no rules",
		rules: func(t *testing.T, p *Patcher[string]) {},
		in:    "1 2 3",
		out:   "1 2 3",
	},
	{
		name: "pattern longer than remainder",
		rules: func(t *testing.T, p *Patcher[string]) {
			addPatch(t, p, "C D E", Replace("Z"))
		},
		in:      "A B C D",
		out:     "A B C D",
		counter: Counter{Applied: 0, Total: 1},
	},
	{
		name: "repeat two",
		rules: func(t *testing.T, p *Patcher[string]) {
			addPatch(t, p, "B", Append("X"), Repeat(2))
		},
		in:      "B B B",
		out:     "B X B X B",
		counter: Counter{Applied: 1, Total: 1},
	},
	{
		name: "repeat forever",
		rules: func(t *testing.T, p *Patcher[string]) {
			addPatch(t, p, "B", Replace("Y"), RepeatForever())
		},
		in:      "B A B B",
		out:     "Y A Y Y",
		counter: Counter{Applied: 1, Total: 1},
	},
	{
		name: "earlier rule wins position",
		rules: func(t *testing.T, p *Patcher[string]) {
			addPatch(t, p, "B C", Replace("1"))
			addPatch(t, p, "B", Replace("2"))
		},
		in:      "A B C B D",
		out:     "A 1 2 D",
		counter: Counter{Applied: 2, Total: 2},
	},
	{
		name: "failed partial match releases position",
		rules: func(t *testing.T, p *Patcher[string]) {
			addPatch(t, p, "B C D", Replace("1"))
			addPatch(t, p, "C", Replace("2"))
		},
		in:      "B C X",
		out:     "B 2 X",
		counter: Counter{Applied: 1, Total: 2},
	},
	{
		name: "no overlap",
		rules: func(t *testing.T, p *Patcher[string]) {
			addPatch(t, p, "A B", Replace("1"))
			addPatch(t, p, "B C", Replace("2"))
		},
		in:      "A B C",
		out:     "1 C",
		counter: Counter{Applied: 1, Total: 2},
	},
	{
		name: "flush tries rules fitting the remainder",
		rules: func(t *testing.T, p *Patcher[string]) {
			addPatch(t, p, "A B C", Replace("1"))
			addPatch(t, p, "B", Replace("2"))
		},
		in:      "A B",
		out:     "A 2",
		counter: Counter{Applied: 1, Total: 2},
	},
	{
		name: "seek window is consumed",
		rules: func(t *testing.T, p *Patcher[string]) {
			addSeek(t, p, "S T")
			addPatch(t, p, "T", Replace("X"))
		},
		in:      "S T T",
		out:     "S T X",
		counter: Counter{Applied: 1, Total: 1},
	},
	{
		name: "armed rule repeats after seek",
		rules: func(t *testing.T, p *Patcher[string]) {
			addSeek(t, p, "S")
			addPatch(t, p, "P", Append("Q"), RepeatForever())
		},
		in:      "P S P P",
		out:     "P S P Q P Q",
		counter: Counter{Applied: 1, Total: 1},
	},
	{
		name: "operand wildcard",
		rules: func(t *testing.T, p *Patcher[string]) {
			addPatch(t, p, "A *", Replace("Z"), Repeat(2))
		},
		in:      "A B A C",
		out:     "Z Z",
		counter: Counter{Applied: 1, Total: 1},
	},
	{
		name: "last seek wins",
		rules: func(t *testing.T, p *Patcher[string]) {
			addSeek(t, p, "S1")
			addSeek(t, p, "S2")
			addPatch(t, p, "P", Delete[string]())
		},
		in:      "P S1 P S2 P",
		out:     "P S1 P S2",
		counter: Counter{Applied: 1, Total: 1},
	},
	{
		name: "same rule registered twice",
		rules: func(t *testing.T, p *Patcher[string]) {
			addPatch(t, p, "B", Append("X"))
			addPatch(t, p, "B", Append("X"))
		},
		in:      "B B B",
		out:     "B X B X B",
		counter: Counter{Applied: 2, Total: 2},
	},
	{
		name: "drop last",
		rules: func(t *testing.T, p *Patcher[string]) {
			addPatch(t, p, "A B", DropLast[string](1))
		},
		in:      "A B C",
		out:     "A C",
		counter: Counter{Applied: 1, Total: 1},
	},
	{
		name: "seek never matches",
		rules: func(t *testing.T, p *Patcher[string]) {
			addSeek(t, p, "S")
			addPatch(t, p, "P", Delete[string]())
		},
		in:      "P P",
		out:     "P P",
		counter: Counter{Applied: 0, Total: 1},
	},
	{
		name: "gated and ungated rules",
		rules: func(t *testing.T, p *Patcher[string]) {
			addSeek(t, p, "S")
			addPatch(t, p, "P", Replace("1"))
			addPatch(t, p, "P", Replace("2"))
		},
		in:      "P S P",
		out:     "2 S 1",
		counter: Counter{Applied: 2, Total: 2},
	},
	{
		name: "chained actions",
		rules: func(t *testing.T, p *Patcher[string]) {
			addPatch(t, p, "ldc.36 beq", Chain(
				DropLast[string](2),
				Append("ldc.10", "bge"),
				Prepend("nop")))
		},
		in:      "isinst ldc.36 beq ret",
		out:     "isinst nop ldc.10 bge ret",
		counter: Counter{Applied: 1, Total: 1},
	},
}

func TestPatcher(t *testing.T) {
	for _, tt := range patchTests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(eq)
			tt.rules(t, p)
			got, err := p.Apply(seq(tt.in))
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if diff := cmp.Diff(seq(tt.out), got); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
			if c := p.Counter(); c != tt.counter {
				t.Errorf("counter: got %s, expected %s", c, tt.counter)
			}
		})
	}
}

// TestPatcherIncremental feeds the same cases one element at a time and
// checks the concatenated output matches the batch result.
func TestPatcherIncremental(t *testing.T) {
	for _, tt := range patchTests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(eq)
			tt.rules(t, p)
			var got []string
			for _, e := range seq(tt.in) {
				out, err := p.From(e)
				if err != nil {
					t.Fatalf("From(%q): %v", e, err)
				}
				got = append(got, out...)
			}
			got = append(got, p.Flush()...)
			if diff := cmp.Diff(seq(tt.out), got); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIdentity(t *testing.T) {
	in := seq("ldarg.0 ldfld call add ret ldarg.0 ldfld")
	p := New(eq)
	got, err := p.Apply(in)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("identity mismatch (-want +got):\n%s", diff)
	}
	if !p.Counter().Complete() {
		t.Errorf("empty patcher should be complete, got %s", p.Counter())
	}
}

func TestAtMostRepeat(t *testing.T) {
	for _, repeat := range []int{1, 2, 3, 7} {
		p := New(eq)
		calls := 0
		r, err := p.AddPatch(seq("B"), func(m []string) []string {
			calls++
			return m
		}, Repeat(repeat))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := p.Apply(seq(strings.Repeat("B A ", 5))); err != nil {
			t.Fatal(err)
		}
		want := min(repeat, 5)
		if calls != want {
			t.Errorf("repeat %d: action ran %d times, expected %d", repeat, calls, want)
		}
		if r.Fired() != want {
			t.Errorf("repeat %d: Fired() = %d, expected %d", repeat, r.Fired(), want)
		}
	}
}

func TestSeekDoesNotSpendBudget(t *testing.T) {
	p := New(eq)
	addSeek(t, p, "P")
	r := addPatch(t, p, "P", Replace("X"))
	got, err := p.Apply(seq("P P"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(seq("P X"), got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if r.Fired() != 1 {
		t.Errorf("Fired() = %d, expected 1", r.Fired())
	}
}

func TestRuleStates(t *testing.T) {
	p := New(eq)
	addSeek(t, p, "S")
	r := addPatch(t, p, "P", nil, Named("gated"), Repeat(2))
	if r.State() != Unarmed {
		t.Fatalf("initial state %s, expected unarmed", r.State())
	}
	step := func(e string, want State) {
		t.Helper()
		if _, err := p.From(e); err != nil {
			t.Fatal(err)
		}
		if r.State() != want {
			t.Errorf("after %q: state %s, expected %s", e, r.State(), want)
		}
	}
	step("P", Unarmed)
	step("S", Armed)
	step("P", Armed)
	step("P", Exhausted)
	step("P", Exhausted)
	if r.Fired() != 2 {
		t.Errorf("Fired() = %d, expected 2", r.Fired())
	}
	if got, want := r.String(), "gated [exhausted 2/2]"; got != want {
		t.Errorf("String() = %q, expected %q", got, want)
	}
}

func TestBufferBound(t *testing.T) {
	p := New(eq)
	addPatch(t, p, "A B C", Replace("1"), RepeatForever())
	addPatch(t, p, "D", Replace("2"), RepeatForever())
	in := seq("A A B A B C D A B B C A B C C D A")
	for i, e := range in {
		if _, err := p.From(e); err != nil {
			t.Fatal(err)
		}
		if len(p.buf) > 3 {
			t.Fatalf("after element %d buffer holds %d elements", i, len(p.buf))
		}
	}
	p.Flush()
	if len(p.buf) != 0 {
		t.Errorf("buffer not empty after flush: %v", p.buf)
	}
}

func TestUnmatchedPassThrough(t *testing.T) {
	p := New(eq)
	addPatch(t, p, "X Y", Replace("Z"))
	in := seq("A X B X X C X")
	got, err := p.Apply(in)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	missed := p.Missed()
	if len(missed) != 1 || missed[0].Name() != "rule 1" {
		t.Errorf("Missed() = %v", missed)
	}
}

func TestRegistrationErrors(t *testing.T) {
	p := New(eq)
	if err := p.AddSeek(nil); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("empty seek: got %v", err)
	}
	if _, err := p.AddPatch(Pattern[string]{}, nil); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("empty patch: got %v", err)
	}
	if _, err := p.AddPatch(seq("A"), nil, Repeat(0)); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("repeat 0: got %v", err)
	}
	if p.Total() != 0 {
		t.Errorf("failed registrations counted: %d", p.Total())
	}
	if _, err := p.From("A"); err != nil {
		t.Fatal(err)
	}
	if err := p.AddSeek(seq("A")); !errors.Is(err, ErrStarted) {
		t.Errorf("seek after start: got %v", err)
	}
	if _, err := p.AddPatch(seq("A"), nil); !errors.Is(err, ErrStarted) {
		t.Errorf("patch after start: got %v", err)
	}
}

func TestFeedAfterFlush(t *testing.T) {
	p := New(eq)
	addPatch(t, p, "A B", Replace("1"))
	if _, err := p.From("A"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(seq("A"), p.Flush()); diff != "" {
		t.Errorf("flush mismatch (-want +got):\n%s", diff)
	}
	if out := p.Flush(); out != nil {
		t.Errorf("second flush returned %v", out)
	}
	if _, err := p.From("B"); !errors.Is(err, ErrFlushed) {
		t.Errorf("feed after flush: got %v", err)
	}
	n := 0
	for _, err := range p.Rewrite(slices.Values(seq("C"))) {
		n++
		if !errors.Is(err, ErrFlushed) {
			t.Errorf("Rewrite after flush: got %v", err)
		}
	}
	if n != 1 {
		t.Errorf("Rewrite after flush yielded %d times", n)
	}
}

func TestRewriteStopsEarly(t *testing.T) {
	p := New(eq)
	addPatch(t, p, "B", Append("X"))
	var got []string
	for e, err := range p.Rewrite(slices.Values(seq("A B C D"))) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, e)
		if len(got) == 3 {
			break
		}
	}
	if diff := cmp.Diff(seq("A B X"), got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestActionOwnsWindow(t *testing.T) {
	p := New(eq)
	addPatch(t, p, "A B", func(m []string) []string {
		m[0] = "changed"
		return m[1:]
	})
	in := seq("A B C")
	got, err := p.Apply(in)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(seq("B C"), got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if in[0] != "A" {
		t.Errorf("input mutated: %v", in)
	}
}

func TestCounterString(t *testing.T) {
	c := Counter{Applied: 1, Total: 2}
	if got := c.String(); got != "1 / 2 patches applied" {
		t.Errorf("String() = %q", got)
	}
	if c.Complete() {
		t.Error("1/2 reported complete")
	}
}
