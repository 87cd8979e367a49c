package main

import (
	"fmt"

	"github.com/chestworks/seqpatch/insn"
	"github.com/chestworks/seqpatch/patcher"
	"github.com/chestworks/seqpatch/ruleset"

	"github.com/scott-cotton/cli"
)

func check(cfg *CheckConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Check.Parse(cc, args)
	if err != nil {
		cfg.Check.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 0 {
		return fmt.Errorf("%w: check takes no arguments, got %v", cli.ErrUsage, args)
	}
	set, err := loadRules(cfg.Rules, cfg.Overlays)
	if err != nil {
		return err
	}
	total := 0
	for _, t := range set.Targets {
		p := patcher.New(insn.Equivalent)
		if err := t.Install(p, ruleset.NewBinding(t.Method)); err != nil {
			return err
		}
		fmt.Fprintf(cc.Out, "%s: %d rules\n", t.Method, p.Total())
		total += p.Total()
	}
	name := set.Name
	if name == "" {
		name = cfg.Rules
	}
	fmt.Fprintf(cc.Out, "%s: ok, %d targets, %d rules\n", name, len(set.Targets), total)
	return nil
}
