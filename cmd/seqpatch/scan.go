package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/chestworks/seqpatch/job"

	"github.com/scott-cotton/cli"
)

func scan(cfg *ScanConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Scan.Parse(cc, args)
	if err != nil {
		cfg.Scan.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	set, err := loadRules(cfg.Rules, cfg.Overlays)
	if err != nil {
		return err
	}
	l, err := readListing(cc, args)
	if err != nil {
		return err
	}
	results, err := job.RunListing(context.Background(), cfg.Log, set, l)
	if err != nil {
		return fmt.Errorf("error scanning with %s: %w", cfg.Rules, err)
	}
	for _, r := range results {
		if r.Skipped {
			continue
		}
		name := r.Method
		if name == "" {
			name = "(listing)"
		}
		switch {
		case r.Missing:
			fmt.Fprintf(cc.Out, "%s: method not found, %d rules missed\n", name, r.Counter.Total)
		case r.Complete():
			fmt.Fprintf(cc.Out, "%s: %s\n", name, r.Counter)
		default:
			fmt.Fprintf(cc.Out, "%s: %s, missed: %s\n", name, r.Counter, strings.Join(r.Missed, ", "))
		}
	}
	return nil
}
