// Package commands holds the tasksync subcommands.
package commands

import (
	"context"

	"github.com/yukikurage/task-macro-sync/internal/app"
	"github.com/yukikurage/task-macro-sync/internal/session"
)

// DefaultActor is the user commands act as when none is given.
const DefaultActor = "XWiki.Admin"

type Flags struct {
	ConfigPath string
	Actor      string

	// App is opened in the Before hook and available to all commands
	App *app.App
}

// Context returns ctx acting as the configured actor.
func (f *Flags) Context(ctx context.Context) context.Context {
	actor := f.Actor
	if actor == "" {
		actor = DefaultActor
	}
	return session.WithActor(ctx, actor)
}
