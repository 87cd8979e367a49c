// Package job runs rulesets over instruction listings: one fresh patcher per
// method, every applicable target installed on it.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/chestworks/seqpatch/debug"
	"github.com/chestworks/seqpatch/insn"
	"github.com/chestworks/seqpatch/patcher"
	"github.com/chestworks/seqpatch/ruleset"

	"golang.org/x/sync/errgroup"
)

// Job patches a single method body.
type Job struct {
	Method  string
	Targets []*ruleset.Target
	Body    []insn.Instr
}

type Result struct {
	Method string
	// Out is the rewritten body. For pass-through methods it is the input.
	Out     []insn.Instr
	Counter patcher.Counter
	// Missed names the rules that never fired.
	Missed []string
	// Fired maps rule names to firing counts.
	Fired map[string]int

	// Skipped is set for methods no target applies to.
	Skipped bool
	// Missing is set for targets naming a method absent from the listing.
	Missing bool
}

// Complete reports whether every rule of the result fired.
func (r *Result) Complete() bool {
	return !r.Missing && r.Counter.Complete()
}

const checkEvery = 1024

// Run streams the job's body through a fresh patcher carrying the rules of
// every target. Rules that never fire are reported in the result and logged,
// but are not an error.
func Run(ctx context.Context, log *slog.Logger, j *Job) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log = log.With("method", j.Method)
	p := patcher.New(insn.Equivalent)
	b := ruleset.NewBinding(j.Method)
	for _, t := range j.Targets {
		if err := t.Install(p, b); err != nil {
			return nil, fmt.Errorf("method %q: %w", j.Method, err)
		}
	}
	log.Info("applying patches", "rules", p.Total())

	out := make([]insn.Instr, 0, len(j.Body))
	n := 0
	for in, err := range p.Rewrite(slices.Values(j.Body)) {
		if err != nil {
			return nil, fmt.Errorf("method %q: %w", j.Method, err)
		}
		out = append(out, in)
		n++
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	if err := b.Err(); err != nil {
		return nil, fmt.Errorf("method %q: %w", j.Method, err)
	}

	res := &Result{
		Method:  j.Method,
		Out:     out,
		Counter: p.Counter(),
		Fired:   map[string]int{},
	}
	for _, r := range p.Rules() {
		res.Fired[r.Name()] += r.Fired()
		if debug.Rules() {
			debug.Logf("%s: %s\n", j.Method, r)
		}
	}
	for _, r := range p.Missed() {
		res.Missed = append(res.Missed, r.Name())
	}
	log.Debug("patch tally", "applied", res.Counter.Applied, "total", res.Counter.Total)
	if !res.Counter.Complete() {
		log.Warn("failed to apply all patches", "counter", res.Counter.String(), "missed", res.Missed)
	}
	return res, nil
}

type config struct {
	parallel int
}

type Option func(*config)

// Parallel bounds the number of methods patched at once. n <= 0 means no
// bound.
func Parallel(n int) Option {
	return func(c *config) { c.parallel = n }
}

// RunListing patches every method of l that a target of set applies to, in
// parallel. Results come back in listing order, followed by one Missing
// result per target naming a method l does not have. The first hard error
// cancels the remaining jobs.
func RunListing(ctx context.Context, log *slog.Logger, set *ruleset.Set, l *insn.Listing, opts ...Option) ([]*Result, error) {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	results := make([]*Result, len(l.Methods))
	g, gctx := errgroup.WithContext(ctx)
	if cfg.parallel > 0 {
		g.SetLimit(cfg.parallel)
	}
	for i, m := range l.Methods {
		targets := set.For(m.Name)
		if len(targets) == 0 {
			results[i] = &Result{Method: m.Name, Out: m.Body, Skipped: true}
			continue
		}
		g.Go(func() error {
			res, err := Run(gctx, log, &Job{Method: m.Name, Targets: targets, Body: m.Body})
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return append(results, missing(log, set, l)...), nil
}

func missing(log *slog.Logger, set *ruleset.Set, l *insn.Listing) []*Result {
	var res []*Result
	for _, t := range set.Targets {
		if t.Method == ruleset.AnyMethod || l.Method(t.Method) != nil {
			continue
		}
		log.Warn("target method not found", "method", t.Method, "rules", len(t.Rules))
		r := &Result{
			Method:  t.Method,
			Missing: true,
			Counter: patcher.Counter{Total: len(t.Rules)},
		}
		for i := range t.Rules {
			r.Missed = append(r.Missed, t.RuleName(i))
		}
		res = append(res, r)
	}
	return res
}
