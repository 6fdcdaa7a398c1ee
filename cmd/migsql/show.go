package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rlch/migsql/report"
)

func (a *app) showCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "List recorded migrations and their operations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "output format (text, json, yaml)",
				Value:   report.FormatText,
			},
			&cli.StringFlag{
				Name:  "filter",
				Usage: "only show operations matching an expression",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "include SQL in text output",
			},
		},
		Action: a.runShow,
	}
}

func (a *app) runShow(_ context.Context, cmd *cli.Command) error {
	filter, err := report.CompileFilter(cmd.String("filter"))
	if err != nil {
		return err
	}

	p, err := a.setup(cmd)
	if err != nil {
		return err
	}

	w := stdout(cmd)

	migs, err := p.store.Load()
	if err != nil {
		return err
	}

	if len(migs) == 0 {
		_, _ = fmt.Fprintf(w, "No migrations in %s\n", p.store.Dir())
		return nil
	}

	f := report.NewFormatter(cmd.String("format"), w, cmd.Bool("verbose"))

	for _, mig := range migs {
		ops, err := filter.Apply(mig.Operations)
		if err != nil {
			return err
		}

		if err := f.Migration(mig.Name, ops); err != nil {
			return err
		}
	}

	return f.Summary()
}
