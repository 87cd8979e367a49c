package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chestworks/seqpatch/insn"
	"github.com/chestworks/seqpatch/ruleset"

	"github.com/google/gops/agent"
	"github.com/scott-cotton/cli"
)

func seqpatchMain(cfg *MainConfig, cc *cli.Context, args []string) (err error) {
	cfg.Log = newLogger(os.Stderr, false)
	defer func() {
		if cerr := cfg.closeOut(); err == nil {
			err = cerr
		}
	}()
	args, err = cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	cfg.Log = newLogger(os.Stderr, cfg.V)
	if cfg.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			cfg.Log.Warn("gops agent failed", "error", err)
		} else {
			defer agent.Close()
		}
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, args[0])
	}
	err = sub.Run(cc, args[1:])
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func (cfg *MainConfig) outOpt(cc *cli.Context, a string) (any, error) {
	cfg.Out = a
	if a == "-" {
		return nil, nil
	}
	f, err := os.OpenFile(cfg.Out, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	cc.Out = f
	cfg.CloseOut = f.Close
	return nil, nil
}

// closeOut closes the -o file, if any. A failed close may have lost output,
// so it is logged and returned.
func (cfg *MainConfig) closeOut() error {
	if cfg.CloseOut == nil {
		return nil
	}
	err := cfg.CloseOut()
	cfg.CloseOut = nil
	if err != nil {
		cfg.Log.Error("error closing output", "file", cfg.Out, "error", err)
		return fmt.Errorf("error closing %s: %w", cfg.Out, err)
	}
	return nil
}

func loadRules(path string, overlays []string) (*ruleset.Set, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: a ruleset is required (-r)", cli.ErrUsage)
	}
	set, err := ruleset.LoadFile(path, overlays...)
	if err != nil {
		return nil, fmt.Errorf("error loading rules: %w", err)
	}
	return set, nil
}

// readListing reads the listing named by args, or stdin when there is none
// or it is "-".
func readListing(cc *cli.Context, args []string) (*insn.Listing, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("%w: at most one listing, got %v", cli.ErrUsage, args)
	}
	if len(args) == 0 || args[0] == "-" {
		l, err := insn.ReadListing(cc.In)
		if err != nil {
			return nil, fmt.Errorf("error reading stdin: %w", err)
		}
		return l, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", args[0], err)
	}
	defer f.Close()
	l, err := insn.ReadListing(f)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", args[0], err)
	}
	return l, nil
}
