package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/yukikurage/task-macro-sync/internal/models"
)

type GrantCmd struct {
	flags *Flags
}

// NewGrantCmd creates the grant and revoke commands
func NewGrantCmd(flags *Flags) *GrantCmd {
	return &GrantCmd{flags: flags}
}

// Register adds the grant and revoke commands to the application
func (cmd *GrantCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "grant",
			Usage:     "Give a user a role on every reference matching a scope",
			UsageText: "tasksync grant <subject> <scope> <owner|editor|viewer>",
			Description: `The scope is a glob over slash separated reference paths: "Sandbox/**"
covers the Sandbox space and everything below it. Use "*" as the subject to
grant the role to everyone.`,
			Action: cmd.runGrant,
		},
		&cli.Command{
			Name:      "revoke",
			Usage:     "Remove the grants of a user on a scope",
			UsageText: "tasksync revoke <subject> <scope>",
			Action:    cmd.runRevoke,
		},
	)

	return app
}

func (cmd *GrantCmd) runGrant(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 3 {
		return fmt.Errorf("usage: tasksync grant <subject> <scope> <role>")
	}
	args := c.Args()
	role := models.Role(args.Get(2))
	if err := cmd.flags.App.Permissions.Grant(ctx, args.Get(0), args.Get(1), role); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(c.Root().Writer, "granted")
	return nil
}

func (cmd *GrantCmd) runRevoke(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: tasksync revoke <subject> <scope>")
	}
	if err := cmd.flags.App.Permissions.Revoke(ctx, c.Args().Get(0), c.Args().Get(1)); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(c.Root().Writer, "revoked")
	return nil
}
