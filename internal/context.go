package internal

import (
	"context"
	"time"

	"github.com/cpdtrack/cpd-management/internal/identity"
)

type ctxKey string

const ContextActorKey ctxKey = "actor"

// ActorFromContext returns the authenticated actor attached to the request
// context by the auth middleware.
func ActorFromContext(ctx context.Context) (identity.ActorContext, bool) {
	if ctx == nil {
		return identity.ActorContext{}, false
	}
	actor, ok := ctx.Value(ContextActorKey).(identity.ActorContext)
	return actor, ok
}

func ContextWithActor(ctx context.Context, actor identity.ActorContext) context.Context {
	return context.WithValue(ctx, ContextActorKey, actor)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
