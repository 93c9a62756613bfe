package logging

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/yukikurage/task-macro-sync/internal/session"
)

// ContextHook copies actor, document and pass_id from the event context.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if actor := session.Actor(ctx); actor != "" {
		e.Str("actor", actor)
	}
	if document := GetDocument(ctx); document != "" {
		e.Str("document", document)
	}
	if passID := GetPassID(ctx); passID != "" {
		e.Str("pass_id", passID)
	}
}
