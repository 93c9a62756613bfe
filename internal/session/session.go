// Package session carries per-request state through a context: the acting
// user and whether a reconciliation pass is already running.
package session

import "context"

type contextKey int

const (
	actorKey contextKey = iota
	reconcilingKey
)

// WithActor returns a context acting as actor.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// Actor returns the acting user, or an empty string for anonymous calls.
func Actor(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey).(string); ok {
		return v
	}
	return ""
}

// WithReconciling marks ctx as belonging to a running reconciliation pass.
// Saves made with the returned context do not trigger the opposite
// synchronization direction.
func WithReconciling(ctx context.Context) context.Context {
	return context.WithValue(ctx, reconcilingKey, true)
}

// IsReconciling reports whether ctx carries the reconciliation flag.
func IsReconciling(ctx context.Context) bool {
	v, _ := ctx.Value(reconcilingKey).(bool)
	return v
}
