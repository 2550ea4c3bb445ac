// Package context carries per-request values that the HTTP layer, the
// logger and the audit trail all read.
package context

import "context"

type ctxKey struct{ name string }

var requestIDKey = &ctxKey{"request-id"}

// WithRequestID returns ctx tagged with id. An empty id leaves ctx as is.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the id set by WithRequestID, or "" when there is none.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
