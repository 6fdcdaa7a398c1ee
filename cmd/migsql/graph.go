package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rlch/migsql"
	"github.com/rlch/migsql/graph"
)

// ErrUnknownItem is returned when the graph command is asked about an item
// that is not declared.
var ErrUnknownItem = errors.New("unknown item")

func (a *app) graphCommand() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Usage:     "Print items in dependency order, or what one item depends on",
		ArgsUsage: "[namespace.name]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "descendants",
				Usage: "print the items depending on the given item instead of its dependencies",
			},
			&cli.BoolFlag{
				Name:  "state",
				Usage: "use the state recorded by migrations instead of the declarations",
			},
		},
		Action: a.runGraph,
	}
}

func (a *app) runGraph(_ context.Context, cmd *cli.Command) error {
	p, err := a.setup(cmd)
	if err != nil {
		return err
	}

	var g *graph.Graph

	if cmd.Bool("state") {
		g, _, err = p.store.State(p.strict)
	} else {
		g, err = p.declared()
	}

	if err != nil {
		return err
	}

	var keys []migsql.Key

	switch arg := cmd.Args().First(); {
	case arg == "":
		keys, err = g.TopologicalOrder()
		if err != nil {
			return err
		}
	default:
		k, err := migsql.ParseKey(arg, "")
		if err != nil {
			return err
		}

		if !g.Has(k) {
			return fmt.Errorf("%w: %s", ErrUnknownItem, k)
		}

		if cmd.Bool("descendants") {
			keys = g.Descendants(k)
		} else {
			keys = g.Ancestors(k)
		}
	}

	w := stdout(cmd)
	for _, k := range keys {
		_, _ = fmt.Fprintln(w, k)
	}

	return nil
}
