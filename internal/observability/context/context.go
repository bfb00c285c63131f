// Package context carries request correlation values used by logs and spans.
package context

import (
	"context"
	"strings"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	orgIDKey
	actorKey
)

type actor struct {
	kind string
	id   string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgIDKey, strings.TrimSpace(orgID))
}

func OrgIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(orgIDKey).(string)
	return v
}

// WithActor records who is acting, e.g. ("api_key", "key_9X2...") or ("public", "").
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	return context.WithValue(ctx, actorKey, actor{kind: strings.TrimSpace(actorType), id: strings.TrimSpace(actorID)})
}

func ActorFromContext(ctx context.Context) (string, string) {
	v, ok := ctx.Value(actorKey).(actor)
	if !ok {
		return "", ""
	}
	return v.kind, v.id
}
