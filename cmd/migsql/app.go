package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/migsql"
	"github.com/rlch/migsql/declare"
	"github.com/rlch/migsql/graph"
	"github.com/rlch/migsql/history"
)

// CLI errors.
var (
	ErrNoNamespaces   = errors.New("no namespaces configured")
	ErrChangesPending = errors.New("changes detected that are not recorded in a migration")
)

// app holds state shared by the commands of one invocation.
type app struct {
	now    func() time.Time
	logger *zap.Logger
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:  "migsql",
		Usage: "Detect and record migrations for dependency-linked SQL items",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to .migsql.yaml (default: search upwards from the working directory)",
				Sources: cli.EnvVars("MIGSQL_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("MIGSQL_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (console, json)",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "fail when a recorded operation targets an item missing from the replayed state",
			},
		},
		Commands: []*cli.Command{
			a.makemigrationsCommand(),
			a.planCommand(),
			a.graphCommand(),
			a.showCommand(),
		},
		After: func(_ context.Context, _ *cli.Command) error {
			if a.logger != nil {
				_ = a.logger.Sync()
			}

			return nil
		},
	}
}

// project is the loaded configuration of one invocation.
type project struct {
	cfg    *migsql.Config
	strict bool
	store  *history.Store
	logger *zap.Logger
}

// setup loads the config and builds the logger. Flags override config values.
func (a *app) setup(cmd *cli.Command) (*project, error) {
	var (
		cfg *migsql.Config
		err error
	)

	if path := cmd.String("config"); path != "" {
		cfg, err = migsql.LoadConfigFile(path)
	} else {
		var wd string

		wd, err = os.Getwd()
		if err == nil {
			cfg, err = migsql.LoadConfig(wd)
		}
	}

	if err != nil {
		return nil, err
	}

	logger, err := newLogger(
		firstNonEmpty(cmd.String("log-level"), cfg.Log.Level, "warn"),
		firstNonEmpty(cmd.String("log-format"), cfg.Log.Format, migsql.LogFormatConsole),
	)
	if err != nil {
		return nil, err
	}

	a.logger = logger

	strict := cfg.Strict
	if cmd.IsSet("strict") {
		strict = cmd.Bool("strict")
	}

	logger.Debug("loaded config",
		zap.String("dir", cfg.Dir()),
		zap.Int("namespaces", len(cfg.Namespaces)),
		zap.Bool("strict", strict),
	)

	return &project{
		cfg:    cfg,
		strict: strict,
		store:  history.NewStore(cfg.HistoryDir(), history.WithLogger(logger)),
		logger: logger,
	}, nil
}

// declared loads and resolves the declared items.
func (p *project) declared() (*graph.Graph, error) {
	if len(p.cfg.Namespaces) == 0 {
		return nil, ErrNoNamespaces
	}

	decls, err := declare.NewLoader(declare.WithLogger(p.logger)).LoadConfig(p.cfg)
	if err != nil {
		return nil, err
	}

	g, err := graph.Build(decls)
	if err != nil {
		return nil, fmt.Errorf("declared items: %w", err)
	}

	return g, nil
}

func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var config zap.Config

	switch format {
	case migsql.LogFormatJSON:
		config = zap.NewProductionConfig()
	case migsql.LogFormatConsole:
		config = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(lvl)

	return config.Build()
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}

	return os.Stdout
}

// Helper functions for config access
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
