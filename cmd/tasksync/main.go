package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/yukikurage/task-macro-sync/internal/app"
	"github.com/yukikurage/task-macro-sync/internal/commands"
	"github.com/yukikurage/task-macro-sync/internal/config"
)

// Populated at build-time via -ldflags flag.
var version = "dev"

func main() {
	flags := &commands.Flags{}

	root := &cli.Command{
		Name:      "tasksync",
		Usage:     "Keep task macros and task records in step",
		UsageText: "tasksync [global options] command [command options]",
		Description: `Documents declare tasks as task macros. Saving a document creates, updates
and releases the matching task records; editing a record rewrites its macro
in the owner document.

Database and date settings come from the environment (DB_DRIVER, DB_PATH,
TASK_TIMEZONE, ...) and may be overridden by a YAML file given with --config.`,
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to a YAML config file",
				Sources:     cli.EnvVars("TASKSYNC_CONFIG"),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "actor",
				Aliases:     []string{"u"},
				Usage:       "user the command acts as",
				Sources:     cli.EnvVars("TASKSYNC_ACTOR"),
				Value:       commands.DefaultActor,
				Destination: &flags.Actor,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg := config.Load()
			if flags.ConfigPath != "" {
				if err := cfg.LoadFile(flags.ConfigPath); err != nil {
					return ctx, err
				}
			}

			a, err := app.Open(cfg)
			if err != nil {
				return ctx, fmt.Errorf("open: %w", err)
			}
			flags.App = a
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if flags.App == nil {
				return nil
			}
			return flags.App.Close()
		},
	}

	root = commands.NewDocCmd(flags).Register(root)
	root = commands.NewTaskCmd(flags).Register(root)
	root = commands.NewGrantCmd(flags).Register(root)

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Error().Err(err).Msg("tasksync failed")
		os.Exit(1)
	}
}
