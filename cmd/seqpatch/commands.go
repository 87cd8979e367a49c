package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	sOpts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts := append(sOpts, &cli.Opt{
		Name:        "o",
		Description: "output file (default stdout)",
		Type:        cli.NamedFuncOpt(cfg.outOpt, "(filepath)"),
	})

	return cli.NewCommandAt(&cfg.Main, "seqpatch").
		WithSynopsis("seqpatch [opts] command [opts]").
		WithDescription("seqpatch rewrites instruction listings with declarative pattern rules.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return seqpatchMain(cfg, cc, args)
		}).
		WithSubs(
			ApplyCommand(cfg),
			CheckCommand(cfg),
			ScanCommand(cfg))
}

func overlayOpt(overlays *[]string) *cli.Opt {
	return &cli.Opt{
		Name:        "x",
		Description: "json patch applied to the ruleset before loading, repeatable",
		Type: cli.NamedFuncOpt(cli.FuncOpt(func(_ *cli.Context, v string) (any, error) {
			*overlays = append(*overlays, v)
			return v, nil
		}), "(file)"),
	}
}

func ApplyCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ApplyConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts, overlayOpt(&cfg.Overlays))
	return cli.NewCommandAt(&cfg.Apply, "apply").
		WithAliases("a").
		WithSynopsis("apply -r rules [-x overlay]... [-diff] [-strict] [-j n] [-metrics file] [listing]").
		WithDescription("rewrite a listing (default stdin) with a ruleset").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return apply(cfg, cc, args)
		})
}

func CheckCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &CheckConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts, overlayOpt(&cfg.Overlays))
	return cli.NewCommandAt(&cfg.Check, "check").
		WithAliases("c").
		WithSynopsis("check -r rules [-x overlay]...").
		WithDescription("load a ruleset and install every target, reporting errors").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return check(cfg, cc, args)
		})
}

func ScanCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ScanConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts, overlayOpt(&cfg.Overlays))
	return cli.NewCommandAt(&cfg.Scan, "scan").
		WithAliases("s").
		WithSynopsis("scan -r rules [-x overlay]... [listing]").
		WithDescription("dry run: report which rules of a ruleset would fire on a listing").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return scan(cfg, cc, args)
		})
}
