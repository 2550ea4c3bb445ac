package middleware

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/auth"
)

type ctxKey string

const ctxUserID ctxKey = "user_id"

func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserID, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxUserID).(string)
	return v, ok && v != ""
}

// IdentityFromContext returns the authenticated caller, or a zero Identity.
func IdentityFromContext(ctx context.Context) auth.Identity {
	uid, _ := UserIDFromContext(ctx)
	return auth.Identity{UserID: uid}
}
