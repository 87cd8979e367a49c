package main

import (
	"io"
	"log/slog"

	"github.com/chestworks/seqpatch/insn"

	"github.com/scott-cotton/cli"
)

type MainConfig struct {
	V     bool `cli:"name=v desc='verbose logging'"`
	Color bool `cli:"name=color desc='print listings and diffs with color'"`
	Gops  bool `cli:"name=gops desc='start a gops agent'"`

	Out      string
	CloseOut func() error

	Log *slog.Logger

	Main *cli.Command
}

// colors returns the colors to print to w with: on with -color, off when
// -color=false was given, else on for terminals.
func (cfg *MainConfig) colors(w io.Writer) *insn.Colors {
	if cfg.Color {
		return insn.NewColors()
	}
	for _, opt := range cfg.Main.Opts {
		if opt.Name != "color" {
			continue
		}
		if opt.Value != nil {
			return nil
		}
		break
	}
	return insn.TerminalColors(w)
}

type ApplyConfig struct {
	*MainConfig

	Rules    string `cli:"name=r aliases=rules desc='ruleset file'"`
	Diff     bool   `cli:"name=diff desc='print a diff of each patched method instead of the listing'"`
	Strict   bool   `cli:"name=strict desc='exit 1 when some rule never fired'"`
	Jobs     int    `cli:"name=j desc='number of methods patched in parallel, 0 for no bound'"`
	Metrics  string `cli:"name=metrics desc='write prometheus metrics to a textfile'"`
	Overlays []string

	Apply *cli.Command
}

type CheckConfig struct {
	*MainConfig

	Rules    string `cli:"name=r aliases=rules desc='ruleset file'"`
	Overlays []string

	Check *cli.Command
}

type ScanConfig struct {
	*MainConfig

	Rules    string `cli:"name=r aliases=rules desc='ruleset file'"`
	Overlays []string

	Scan *cli.Command
}
