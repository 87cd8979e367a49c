package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chestworks/seqpatch/insn"
	"github.com/chestworks/seqpatch/job"
	"github.com/chestworks/seqpatch/metrics"

	"github.com/scott-cotton/cli"
)

func apply(cfg *ApplyConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Apply.Parse(cc, args)
	if err != nil {
		cfg.Apply.Usage(cc, err)
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
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	results, err := job.RunListing(ctx, cfg.Log, set, l, job.Parallel(cfg.Jobs))
	if err != nil {
		return fmt.Errorf("error applying %s: %w", cfg.Rules, err)
	}
	if cfg.Metrics != "" {
		rec := metrics.NewRecorder()
		for _, r := range results {
			rec.Observe(r)
		}
		if err := rec.WriteTextfile(cfg.Metrics); err != nil {
			return fmt.Errorf("error writing metrics: %w", err)
		}
	}
	colors := cfg.colors(cc.Out)
	if cfg.Diff {
		err = writeDiffs(cc.Out, l, results, colors)
	} else {
		err = writePatched(cc.Out, l, results, colors)
	}
	if err != nil {
		return err
	}
	if cfg.Strict {
		for _, r := range results {
			if !r.Skipped && !r.Complete() {
				return cli.ExitCodeErr(1)
			}
		}
	}
	return nil
}

func writePatched(w io.Writer, l *insn.Listing, results []*job.Result, colors *insn.Colors) error {
	out := &insn.Listing{}
	for i, m := range l.Methods {
		out.Methods = append(out.Methods, &insn.Method{Name: m.Name, Body: results[i].Out})
	}
	if err := insn.NewPrinter(w, insn.PrintColors(colors)).Listing(out); err != nil {
		return fmt.Errorf("error writing listing: %w", err)
	}
	return nil
}

func writeDiffs(w io.Writer, l *insn.Listing, results []*job.Result, colors *insn.Colors) error {
	for i, m := range l.Methods {
		r := results[i]
		if r.Skipped {
			continue
		}
		d := insn.Diff(m.Body, r.Out, colors)
		if d == "" {
			continue
		}
		name := m.Name
		if name == "" {
			name = "(listing)"
		}
		if _, err := fmt.Fprintf(w, "--- %s (%s)\n%s", name, r.Counter, d); err != nil {
			return fmt.Errorf("error writing diff: %w", err)
		}
	}
	return nil
}
