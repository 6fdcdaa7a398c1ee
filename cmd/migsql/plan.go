package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rlch/migsql/report"
)

func (a *app) planCommand() *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Show the operations the next migration would contain",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "output format (text, json, yaml)",
				Value:   report.FormatText,
			},
			&cli.StringFlag{
				Name:  "filter",
				Usage: `only show operations matching an expression, e.g. 'kind == "Delete"'`,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "include SQL in text output",
			},
		},
		Action: a.runPlan,
	}
}

func (a *app) runPlan(_ context.Context, cmd *cli.Command) error {
	filter, err := report.CompileFilter(cmd.String("filter"))
	if err != nil {
		return err
	}

	p, err := a.setup(cmd)
	if err != nil {
		return err
	}

	w := stdout(cmd)

	plan, _, err := p.pending()
	if err != nil {
		return err
	}

	if plan.Empty() {
		_, _ = fmt.Fprintln(w, "No changes detected")
		return nil
	}

	ops, err := filter.Apply(plan.Operations)
	if err != nil {
		return err
	}

	f := report.NewFormatter(cmd.String("format"), w, cmd.Bool("verbose"))
	if err := f.Migration("pending", ops); err != nil {
		return err
	}

	return f.Summary()
}
