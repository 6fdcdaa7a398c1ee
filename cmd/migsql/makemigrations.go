package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rlch/migsql/detect"
	"github.com/rlch/migsql/history"
	"github.com/rlch/migsql/report"
)

func (a *app) makemigrationsCommand() *cli.Command {
	return &cli.Command{
		Name:    "makemigrations",
		Aliases: []string{"make"},
		Usage:   "Record the changes to declared SQL items as a new migration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "migration name (default: initial, then auto_<timestamp>)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print the migration instead of writing it",
			},
			&cli.BoolFlag{
				Name:  "check",
				Usage: "exit with an error when changes are missing a migration",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "dry-run output format (text, json, yaml)",
				Value:   report.FormatText,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "include SQL in text output",
			},
		},
		Action: a.runMakemigrations,
	}
}

func (a *app) runMakemigrations(_ context.Context, cmd *cli.Command) error {
	p, err := a.setup(cmd)
	if err != nil {
		return err
	}

	w := stdout(cmd)

	plan, migs, err := p.pending()
	if err != nil {
		return err
	}

	if plan.Empty() {
		_, _ = fmt.Fprintln(w, "No changes detected")
		return nil
	}

	name, err := history.NextName(migs, cmd.String("name"), a.now())
	if err != nil {
		return err
	}

	if cmd.Bool("check") || cmd.Bool("dry-run") {
		f := report.NewFormatter(cmd.String("format"), w, cmd.Bool("verbose"))
		if err := f.Migration(name, plan.Operations); err != nil {
			return err
		}

		if err := f.Summary(); err != nil {
			return err
		}

		if cmd.Bool("check") {
			return ErrChangesPending
		}

		return nil
	}

	mig, err := p.store.Write(name, plan.Operations)
	if err != nil {
		return err
	}

	p.logger.Info("wrote migration", zap.String("path", mig.Path), zap.Int("operations", len(mig.Operations)))

	_, _ = fmt.Fprintf(w, "Created migration %s\n", mig.Path)

	return report.NewTextFormatter(w, false, report.IsTerminal(w)).Migration(mig.Name, mig.Operations)
}

// pending replays the recorded migrations and detects what the declarations
// add to them.
func (p *project) pending() (*detect.Plan, []*history.Migration, error) {
	to, err := p.declared()
	if err != nil {
		return nil, nil, err
	}

	from, migs, err := p.store.State(p.strict)
	if err != nil {
		return nil, nil, err
	}

	plan, err := detect.New(from, to, detect.WithLogger(p.logger)).Detect()
	if err != nil {
		return nil, nil, err
	}

	return plan, migs, nil
}
