// Package ruleset loads declarative patch rules and installs them on a
// patcher for instruction listings.
//
// A ruleset is a YAML document:
//
//	name: resize-chest-menu
//	targets:
//	  - method: ItemGrabMenu::.ctor
//	    rules:
//	      - name: jump condition
//	        match: [ "isinst Chest", "callvirt Chest::GetActualCapacity()", "ldc.i4.s 36", "beq.s" ]
//	        actions:
//	          - drop: 2
//	          - append: [ "ldc.i4.s 10", "bge.s ${ match[3].arg }" ]
//
// A target whose method is "*" applies to every method. Instructions inside
// actions may embed ${ expr } expressions, evaluated against the matched
// window; see Install.
package ruleset

import (
	"fmt"
	"os"

	"github.com/chestworks/seqpatch/insn"
	"github.com/chestworks/seqpatch/patcher"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/goccy/go-yaml"
)

// AnyMethod is the target method matching every method of a listing.
const AnyMethod = "*"

type Set struct {
	Name    string    `yaml:"name"`
	Targets []*Target `yaml:"targets"`
}

type Target struct {
	Method string  `yaml:"method"`
	Rules  []*Rule `yaml:"rules"`
}

// Rule is one seek/match/actions entry. Repeat is an integer or "forever"
// and defaults to 1.
type Rule struct {
	Name    string   `yaml:"name"`
	Seek    []string `yaml:"seek"`
	Match   []string `yaml:"match"`
	Repeat  any      `yaml:"repeat"`
	Actions []*Step  `yaml:"actions"`

	seek   patcher.Pattern[insn.Instr]
	match  patcher.Pattern[insn.Instr]
	repeat int
	steps  []step
}

// Step is a single action. Exactly one field is set.
type Step struct {
	Drop    *int     `yaml:"drop"`
	Keep    *int     `yaml:"keep"`
	Append  []string `yaml:"append"`
	Prepend []string `yaml:"prepend"`
	Replace []string `yaml:"replace"`
	Delete  bool     `yaml:"delete"`
}

// Load decodes a ruleset. Each overlay is an RFC 6902 JSON patch, written in
// JSON or YAML, applied to the document in order before decoding.
func Load(data []byte, overlays ...[]byte) (*Set, error) {
	if len(overlays) != 0 {
		var err error
		data, err = applyOverlays(data, overlays)
		if err != nil {
			return nil, err
		}
	}
	set := &Set{}
	if err := yaml.UnmarshalWithOptions(data, set, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("error decoding ruleset: %w", err)
	}
	if err := set.compile(); err != nil {
		if set.Name != "" {
			return nil, fmt.Errorf("ruleset %q: %w", set.Name, err)
		}
		return nil, err
	}
	return set, nil
}

// LoadFile reads a ruleset and its overlays from files.
func LoadFile(path string, overlayPaths ...string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	overlays := make([][]byte, len(overlayPaths))
	for i, p := range overlayPaths {
		overlays[i], err = os.ReadFile(p)
		if err != nil {
			return nil, err
		}
	}
	set, err := Load(data, overlays...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

func applyOverlays(data []byte, overlays [][]byte) ([]byte, error) {
	doc, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("error converting ruleset to json: %w", err)
	}
	for i, o := range overlays {
		oj, err := yaml.YAMLToJSON(o)
		if err != nil {
			return nil, fmt.Errorf("overlay %d: %w", i, err)
		}
		ops, err := jsonpatch.DecodePatch(oj)
		if err != nil {
			return nil, fmt.Errorf("overlay %d: %w", i, err)
		}
		doc, err = ops.Apply(doc)
		if err != nil {
			return nil, fmt.Errorf("overlay %d: %w", i, err)
		}
	}
	return doc, nil
}

// For returns the targets applying to method, in document order.
func (s *Set) For(method string) []*Target {
	var res []*Target
	for _, t := range s.Targets {
		if t.Applies(method) {
			res = append(res, t)
		}
	}
	return res
}

// Applies reports whether the target patches method.
func (t *Target) Applies(method string) bool {
	return t.Method == AnyMethod || t.Method == method
}

// Label names the rule for diagnostics within its target.
func (r *Rule) Label(i int) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("rule %d", i+1)
}

// RuleName names the i-th rule of the target among the rules of every
// target installed on the same patcher. Unnamed rules are qualified with
// the target method.
func (t *Target) RuleName(i int) string {
	if r := t.Rules[i]; r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("%s rule %d", t.Method, i+1)
}

func (s *Set) compile() error {
	if len(s.Targets) == 0 {
		return fmt.Errorf("no targets")
	}
	for _, t := range s.Targets {
		if len(t.Rules) == 0 {
			return fmt.Errorf("target %q: no rules", t.Method)
		}
		for i, r := range t.Rules {
			if err := r.compile(); err != nil {
				return fmt.Errorf("target %q %s: %w", t.Method, r.Label(i), err)
			}
		}
	}
	return nil
}

func (r *Rule) compile() error {
	var err error
	if len(r.Seek) != 0 {
		r.seek, err = parsePattern(r.Seek)
		if err != nil {
			return fmt.Errorf("seek: %w", err)
		}
	}
	if len(r.Match) == 0 {
		return fmt.Errorf("match: %w", patcher.ErrInvalidPattern)
	}
	r.match, err = parsePattern(r.Match)
	if err != nil {
		return fmt.Errorf("match: %w", err)
	}
	r.repeat, err = parseRepeat(r.Repeat)
	if err != nil {
		return err
	}
	r.steps = r.steps[:0]
	for i, s := range r.Actions {
		st, err := s.compile()
		if err != nil {
			return fmt.Errorf("action %d: %w", i+1, err)
		}
		r.steps = append(r.steps, st)
	}
	return nil
}

func parsePattern(lines []string) (patcher.Pattern[insn.Instr], error) {
	res := make(patcher.Pattern[insn.Instr], len(lines))
	for i, l := range lines {
		in, err := insn.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", l, err)
		}
		res[i] = in
	}
	return res, nil
}

func parseRepeat(v any) (int, error) {
	var n int64
	switch x := v.(type) {
	case nil:
		return 1, nil
	case string:
		if x == "forever" {
			return patcher.Forever, nil
		}
		return 0, fmt.Errorf("repeat %q: expected an integer or \"forever\"", x)
	case int:
		n = int64(x)
	case int64:
		n = x
	case uint64:
		n = int64(x)
	case float64:
		if x != float64(int64(x)) {
			return 0, fmt.Errorf("repeat %v: expected an integer", x)
		}
		n = int64(x)
	default:
		return 0, fmt.Errorf("repeat %v: expected an integer or \"forever\"", v)
	}
	if n < 1 {
		return 0, fmt.Errorf("repeat %d: %w", n, patcher.ErrInvalidPattern)
	}
	return int(n), nil
}
