package logging

import "context"

type contextKey string

const (
	documentKey contextKey = "document"
	passIDKey   contextKey = "pass_id"
)

// WithDocument adds the reference of the document being reconciled.
func WithDocument(ctx context.Context, document string) context.Context {
	return context.WithValue(ctx, documentKey, document)
}

// WithPassID adds a reconciliation pass identifier.
func WithPassID(ctx context.Context, passID string) context.Context {
	return context.WithValue(ctx, passIDKey, passID)
}

// GetDocument returns the document reference, or an empty string.
func GetDocument(ctx context.Context) string {
	if v, ok := ctx.Value(documentKey).(string); ok {
		return v
	}
	return ""
}

// GetPassID returns the pass identifier, or an empty string.
func GetPassID(ctx context.Context) string {
	if v, ok := ctx.Value(passIDKey).(string); ok {
		return v
	}
	return ""
}
